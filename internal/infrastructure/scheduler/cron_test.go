package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"DealScanner/internal/domain"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Validate("0 7 * * MON"); err != nil {
		t.Fatalf("weekly schedule rejected: %v", err)
	}
	if err := Validate("@every 1m"); err != nil {
		t.Fatalf("descriptor rejected: %v", err)
	}
	if err := Validate("every monday"); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestStartRejectsBadSpecAndStopsCleanly(t *testing.T) {
	t.Parallel()

	bad := NewCronScheduler("not a cron", nil, nil)
	if err := bad.Start(context.Background(), func(time.Time) {}); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}

	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	s := NewCronScheduler("0 7 * * MON", seoul, nil)
	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// second start is a no-op
	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
