package session

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often expired sessions are removed.
const DefaultSweepInterval = 5 * time.Minute

// RunSweeper periodically deletes idle sessions until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.logger.Info("TTL worker started", "interval", interval, "ttl", m.ttl)

	for {
		select {
		case <-ticker.C:
			deleted, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Error("TTL worker failed to remove expired sessions", "error", err)
				continue
			}
			if deleted > 0 {
				m.logger.Info("TTL worker removed expired sessions", "count", deleted)
			}
		case <-ctx.Done():
			m.logger.Info("TTL worker shutting down", "reason", ctx.Err())
			return nil
		}
	}
}
