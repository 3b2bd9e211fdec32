package scheduler

import (
	"context"
	"time"

	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const jobTimeout = 5 * time.Minute

// DayCloser 把某一天已达标的每日目标标记为完成
type DayCloser interface {
	CloseDay(ctx context.Context, date string) (int64, error)
}

// Scheduler 后台定时任务
type Scheduler struct {
	scheduler *gocron.Scheduler
	closer    DayCloser
	loc       *time.Location
	now       func() time.Time
}

func New(closer DayCloser, loc *time.Location) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		closer:    closer,
		loc:       loc,
		now:       time.Now,
	}
}

// Start 每天 closeAt (HH:MM) 关闭前一天的目标，非阻塞
func (s *Scheduler) Start(closeAt string) error {
	if _, err := s.scheduler.Every(1).Day().At(closeAt).Do(s.closeYesterday); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	logger.Log.Info("Scheduler started", zap.String("daily_goal_close_at", closeAt), zap.String("location", s.loc.String()))
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) closeYesterday() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	date := Yesterday(s.now(), s.loc)
	if _, err := s.closer.CloseDay(ctx, date); err != nil {
		logger.Log.Error("Daily goal close job failed", zap.String("date", date), zap.Error(err))
	}
}

// Yesterday 返回 loc 时区下 now 前一天的日期字符串
func Yesterday(now time.Time, loc *time.Location) string {
	return now.In(loc).AddDate(0, 0, -1).Format(util.DateFormat)
}
