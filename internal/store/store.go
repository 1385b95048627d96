// Package store provides durable storage backends for QuoteFlow session
// contexts.
//
// Contexts are persisted as JSON documents keyed by session id, in either
// SQLite or PostgreSQL. Both backends satisfy SessionStore and can stand
// in for the in-memory session.Store behind the same access pattern.
package store

import (
	"strings"
	"time"

	"github.com/b2bhub/quoteflow/internal/models"
	"github.com/b2bhub/quoteflow/internal/session"
)

// DetectDSNType classifies a DSN as "postgres" or "sqlite". Connection
// URLs and key=value strings go to Postgres; everything else is treated
// as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// DefaultSessionTTL is how long an inactive session survives before a
// sweep removes it.
const DefaultSessionTTL = 24 * time.Hour

// Opts holds configuration options for storage backends.
type Opts struct {
	DSN string
	TTL time.Duration
}

// Option defines a configuration option for storage backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithTTL overrides the session expiry used by SweepExpired.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// SessionStore is the persistence contract for conversation contexts.
type SessionStore interface {
	// LoadContext returns the stored context, or (nil, nil) when the
	// session has never been saved.
	LoadContext(sessionID string) (*session.ConversationContext, error)
	SaveContext(ctx *session.ConversationContext) error
	DeleteContext(sessionID string) error
	// SweepExpired removes sessions whose last update is older than the
	// configured TTL and reports how many were removed.
	SweepExpired() (int64, error)
	Close() error
}

// New builds the backend matching the configured DSN. An empty DSN
// yields (nil, nil): the caller runs without durable persistence.
func New(opts ...Option) (SessionStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		return NewPostgresStore(opts...)
	}
	return NewSQLiteStore(opts...)
}

// hydrate restores the non-serialized limits on a loaded context and
// guards against null maps from older rows.
func hydrate(ctx *session.ConversationContext) {
	ctx.MaxTurns = session.DefaultMaxTurns
	ctx.ContextWindow = session.DefaultContextWindow
	ctx.Expiry = session.DefaultExpiry
	if ctx.UserProfile == nil {
		ctx.UserProfile = make(map[string]string)
	}
	if ctx.Entities == nil {
		ctx.Entities = make(map[models.EntityType]string)
	}
	if ctx.DialogState == nil {
		ctx.DialogState = make(map[string]any)
	}
}
