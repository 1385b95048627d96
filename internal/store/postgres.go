// Package store provides durable storage backends for QuoteFlow.
//
// This file implements the PostgreSQL-backed session store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/b2bhub/quoteflow/internal/session"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresStore creates a new Postgres session store based on the
// provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")

	return &PostgresStore{db: db, ttl: ttl}, nil
}

func (s *PostgresStore) LoadContext(sessionID string) (*session.ConversationContext, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE session_id = $1`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadContext query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	ctx := session.NewContext(sessionID)
	if err := json.Unmarshal(data, ctx); err != nil {
		slog.Error("PostgresStore LoadContext unmarshal failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	hydrate(ctx)
	return ctx, nil
}

func (s *PostgresStore) SaveContext(ctx *session.ConversationContext) error {
	data, err := json.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", ctx.SessionID, err)
	}
	_, err = s.db.Exec(`INSERT INTO sessions (session_id, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		ctx.SessionID, data, time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveContext failed", "error", err, "sessionID", ctx.SessionID)
		return fmt.Errorf("failed to save session %s: %w", ctx.SessionID, err)
	}
	slog.Debug("PostgresStore SaveContext succeeded", "sessionID", ctx.SessionID)
	return nil
}

func (s *PostgresStore) DeleteContext(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		slog.Error("PostgresStore DeleteContext failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) SweepExpired() (int64, error) {
	cutoff := time.Now().Add(-s.ttl)
	res, err := s.db.Exec(`DELETE FROM sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		slog.Error("PostgresStore SweepExpired failed", "error", err)
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept sessions: %w", err)
	}
	if n > 0 {
		slog.Info("PostgresStore.SweepExpired: removed expired sessions", "count", n)
	}
	return n, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
