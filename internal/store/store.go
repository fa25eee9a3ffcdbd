// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/upsell-agent/internal/domain"
)

// Repository defines the interface for persisting conversation sessions.
type Repository interface {
	// GetSession retrieves a session by ID. It returns nil, nil when absent.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// UpsertSession creates or replaces a session record.
	UpsertSession(ctx context.Context, session *domain.Session) error

	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// CleanupExpiredSessions removes sessions idle for longer than ttl and
	// returns their IDs.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) ([]string, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
