package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"study_buddy_backend/internal/model"
	"study_buddy_backend/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var dbSeq int64

// DB 每个测验使用独立的内存 sqlite 数据库，已完成迁移
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	// 单连接串行化写入，内存库随连接存活
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

// Quiz 构造一份属于 userID 的测验，questions 为 topic 列表，正确答案均为 0
func Quiz(userID, subject string, topics ...string) *model.Quiz {
	questions := make([]model.QuizQuestion, 0, len(topics))
	for i, topic := range topics {
		questions = append(questions, model.QuizQuestion{
			ID:            fmt.Sprintf("q%d", i+1),
			Question:      fmt.Sprintf("%s question %d", topic, i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: 0,
			Topic:         topic,
		})
	}
	return &model.Quiz{
		UserID:     userID,
		Title:      subject + " quiz",
		Subject:    subject,
		Difficulty: model.DifficultyMedium,
		Questions:  questions,
	}
}

// CreateQuiz 构造并写入测验
func CreateQuiz(tb testing.TB, db *gorm.DB, userID, subject string, topics ...string) *model.Quiz {
	tb.Helper()
	quiz := Quiz(userID, subject, topics...)
	if err := db.Create(quiz).Error; err != nil {
		tb.Fatalf("create quiz: %v", err)
	}
	return quiz
}

// Date 返回 UTC 指定日期的时间点
func Date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}
