package util

import (
	"strconv"
	"time"
)

// ParsePositiveInt 解析正整数，失败或非正数时返回默认值
func ParsePositiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// ParseDate 按 yyyy-mm-dd 在指定时区解析日期，格式错误返回 ValidationError
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateFormat, s, loc)
	if err != nil {
		return time.Time{}, NewValidationError("date", "expected yyyy-mm-dd, got %q", s)
	}
	return t, nil
}
