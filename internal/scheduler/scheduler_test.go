package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingCloser struct {
	dates []string
	err   error
}

func (c *recordingCloser) CloseDay(_ context.Context, date string) (int64, error) {
	c.dates = append(c.dates, date)
	return 1, c.err
}

func TestYesterday(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	now := time.Date(2024, time.March, 1, 20, 0, 0, 0, time.UTC)

	if got := Yesterday(now, time.UTC); got != "2024-02-29" {
		t.Errorf("utc: %s", got)
	}
	// 东京已是 3 月 2 日
	if got := Yesterday(now, tokyo); got != "2024-03-01" {
		t.Errorf("tokyo: %s", got)
	}
}

func TestCloseYesterday(t *testing.T) {
	closer := &recordingCloser{}
	s := New(closer, time.UTC)
	s.now = func() time.Time { return time.Date(2024, time.January, 1, 0, 5, 0, 0, time.UTC) }

	s.closeYesterday()
	closer.err = errors.New("db down")
	s.closeYesterday()

	if len(closer.dates) != 2 || closer.dates[0] != "2023-12-31" {
		t.Fatalf("dates = %v", closer.dates)
	}
}

func TestStartRejectsBadTime(t *testing.T) {
	s := New(&recordingCloser{}, time.UTC)
	defer s.Stop()
	if err := s.Start("25:99"); err == nil {
		t.Fatal("expected error for invalid time")
	}
}
