package shared

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsSQLiteConflictError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: try again"), true},
		{errors.New("database is locked (5)"), true},
		{errors.New("database table is locked: sessions"), true},
		{errors.New("no such table: sessions"), false},
	}
	for _, tt := range tests {
		if got := IsSQLiteConflictError(tt.err); got != tt.want {
			t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRetryOnConflict(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryOnConflict(context.Background(), 3, time.Millisecond, "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third attempt, got err=%v calls=%d", err, calls)
	}

	calls = 0
	permanent := errors.New("constraint failed")
	err = RetryOnConflict(context.Background(), 5, time.Millisecond, "test", func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("non-conflict errors must not be retried, got err=%v calls=%d", err, calls)
	}
}

func TestRetryOnConflictStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryOnConflict(ctx, 3, time.Second, "test", func() error {
		return errors.New("SQLITE_BUSY")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
