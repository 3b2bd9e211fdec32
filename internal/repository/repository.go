package repository

import (
	"errors"
	"fmt"

	"study_buddy_backend/internal/util"

	"gorm.io/gorm"
)

// DefaultListLimit 未指定测验过滤条件时列表的默认上限
const DefaultListLimit = 50

// translate 把 gorm 的未找到错误统一为 util.ErrNotFound
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, util.ErrNotFound)
	}
	return err
}

// conn 优先使用调用方传入的事务
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
