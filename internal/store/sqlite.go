package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/upsell-agent/internal/domain"
	"github.com/ashureev/upsell-agent/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeRetries   = 3
	writeBaseDelay = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository. dsn is either a file
// path or a "file:" URI such as "file:upsell?mode=memory&cache=shared".
func NewSQLite(dsn string) (Repository, error) {
	memory := isMemoryDSN(dsn)
	if !memory && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", withPragmas(dsn, memory))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if memory {
		// A shared in-memory database lives only while a connection is open.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func withPragmas(dsn string, memory bool) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	pragmas := "_pragma=busy_timeout(5000)"
	if !memory {
		pragmas += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	return dsn + sep + pragmas
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		profile_json TEXT NOT NULL,
		transcript_json TEXT NOT NULL,
		lead_score INTEGER NOT NULL DEFAULT 0,
		chips_json TEXT NOT NULL,
		panel TEXT NOT NULL DEFAULT '',
		phase TEXT NOT NULL,
		terminal INTEGER NOT NULL DEFAULT 0,
		summary_json TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, owner_id, profile_json, transcript_json, lead_score, chips_json,
		       panel, phase, terminal, summary_json, created_at, updated_at
		FROM sessions WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var session domain.Session
	var profileJSON, transcriptJSON, chipsJSON string
	var panel, phase string
	var summaryJSON sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&session.ID, &session.OwnerID, &profileJSON, &transcriptJSON,
		&session.LeadScore, &chipsJSON, &panel, &phase, &session.Terminal,
		&summaryJSON, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if err := json.Unmarshal([]byte(profileJSON), &session.Profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := json.Unmarshal([]byte(transcriptJSON), &session.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(chipsJSON), &session.Chips); err != nil {
		return nil, fmt.Errorf("decode chips: %w", err)
	}
	if summaryJSON.Valid {
		var summary domain.Summary
		if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		session.Summary = &summary
	}

	session.Panel = domain.Panel(panel)
	session.Phase = domain.Phase(phase)
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)

	return &session, nil
}

// UpsertSession creates or updates a session record.
func (s *SQLiteStore) UpsertSession(ctx context.Context, session *domain.Session) error {
	profileJSON, err := json.Marshal(session.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	transcript := session.Transcript
	if transcript == nil {
		transcript = []domain.Turn{}
	}
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	chips := session.Chips
	if chips == nil {
		chips = []string{}
	}
	chipsJSON, err := json.Marshal(chips)
	if err != nil {
		return fmt.Errorf("encode chips: %w", err)
	}
	var summaryJSON interface{}
	if session.Summary != nil {
		b, err := json.Marshal(session.Summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		summaryJSON = string(b)
	}

	query := `
		INSERT INTO sessions (
			id, owner_id, profile_json, transcript_json, lead_score, chips_json,
			panel, phase, terminal, summary_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile_json = excluded.profile_json,
			transcript_json = excluded.transcript_json,
			lead_score = excluded.lead_score,
			chips_json = excluded.chips_json,
			panel = excluded.panel,
			phase = excluded.phase,
			terminal = excluded.terminal,
			summary_json = excluded.summary_json,
			updated_at = excluded.updated_at`

	return shared.RetryOnConflict(ctx, writeRetries, writeBaseDelay, "upsert session", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		_, err := s.db.ExecContext(ctx, query,
			session.ID, session.OwnerID, string(profileJSON), string(transcriptJSON),
			session.LeadScore, string(chipsJSON), string(session.Panel), string(session.Phase),
			session.Terminal, summaryJSON,
			session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		return nil
	})
}

// DeleteSession removes a session, retrying with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	err := shared.RetryOnConflict(ctx, writeRetries, writeBaseDelay, "delete session", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// CleanupExpiredSessions removes sessions whose last update is older than ttl
// and returns the removed IDs.
func (s *SQLiteStore) CleanupExpiredSessions(ctx context.Context, ttl time.Duration) ([]string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()
	rows, err := s.db.QueryContext(ctx, `DELETE FROM sessions WHERE updated_at < ? RETURNING id`, threshold)
	if err != nil {
		return nil, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	if len(ids) > 0 {
		slog.Debug("expired sessions removed", "count", len(ids))
	}
	return ids, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
