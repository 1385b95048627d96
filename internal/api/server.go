package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b2bhub/quoteflow/internal/bot"
	"github.com/b2bhub/quoteflow/internal/dialog"
	"github.com/b2bhub/quoteflow/internal/extract"
	"github.com/b2bhub/quoteflow/internal/genai"
	"github.com/b2bhub/quoteflow/internal/nlu"
	"github.com/b2bhub/quoteflow/internal/semantic"
	"github.com/b2bhub/quoteflow/internal/session"
	"github.com/b2bhub/quoteflow/internal/store"
)

// Default server configuration.
const (
	DefaultAddr              = ":8080"
	DefaultSweepInterval     = time.Hour
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	// DefaultSemanticInitTimeout bounds the background embedding of the
	// intent corpus at startup.
	DefaultSemanticInitTimeout = 2 * time.Minute
)

// Opts holds API server configuration.
type Opts struct {
	Addr          string
	SweepInterval time.Duration
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSweepInterval sets how often expired sessions are removed from the
// durable store.
func WithSweepInterval(d time.Duration) Option {
	return func(o *Opts) { o.SweepInterval = d }
}

// Server owns the HTTP surface over an assembled bot.
type Server struct {
	bot       *bot.Bot
	extractor *extract.Extractor
}

// NewServer wraps an assembled bot. The extractor is the same instance
// the bot extracts with, so catalog updates take effect immediately.
func NewServer(b *bot.Bot, extractor *extract.Extractor) *Server {
	return &Server{bot: b, extractor: extractor}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/chat/debug", s.chatDebugHandler)
	mux.HandleFunc("/catalog/products", s.catalogHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run assembles the full pipeline from module options and serves HTTP
// until SIGINT or SIGTERM.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := Opts{Addr: DefaultAddr, SweepInterval: DefaultSweepInterval}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := extract.New()
	engine := dialog.NewEngine()

	var matcher nlu.SemanticMatcher
	if embedder, err := semantic.NewOpenAIEmbedder(); err != nil {
		slog.Warn("Server.Run: semantic matching disabled, arbitration degrades to fuzzy", "error", err)
	} else {
		m := semantic.NewMatcher(embedder, nlu.StructuralIntents)
		matcher = m
		go func() {
			initCtx, cancel := context.WithTimeout(ctx, DefaultSemanticInitTimeout)
			defer cancel()
			if err := m.Initialize(initCtx, nlu.IntentMap); err != nil {
				slog.Warn("Server.Run: semantic corpus initialization failed", "error", err)
			}
		}()
	}
	arbitrator := nlu.NewArbitrator(matcher, nlu.NewFuzzyMatcher(nlu.IntentMap), engine)

	durable, err := store.New(storeOpts...)
	if err != nil {
		return err
	}

	botOpts := []bot.Option{bot.WithFallback(genai.NewClient(genaiOpts...))}
	if durable != nil {
		defer durable.Close()
		botOpts = append(botOpts, bot.WithDurableStore(durable))
		go sweepLoop(ctx, durable, cfg.SweepInterval)
	}

	server := NewServer(bot.New(session.NewStore(), extractor, arbitrator, engine, botOpts...), extractor)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: QuoteFlow API listening", "addr", cfg.Addr, "durable", durable != nil)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// sweepLoop periodically removes expired sessions from the durable store.
func sweepLoop(ctx context.Context, durable store.SessionStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := durable.SweepExpired(); err != nil {
				slog.Warn("Server.sweepLoop: sweep failed", "error", err)
			}
		}
	}
}
