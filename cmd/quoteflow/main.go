package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/b2bhub/quoteflow/internal/api"
	"github.com/b2bhub/quoteflow/internal/genai"
	"github.com/b2bhub/quoteflow/internal/store"
	"github.com/b2bhub/quoteflow/internal/util"
)

// Default configuration constants.
const (
	// DefaultStateDir is the default directory for QuoteFlow state data.
	DefaultStateDir = "/var/lib/quoteflow"
	// DefaultDBFileName is the default SQLite database filename.
	DefaultDBFileName = "quoteflow.db"
)

func main() {
	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)
	initializeLogger(*flags.logLevel)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping QuoteFlow")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr, "session_ttl", *flags.sessionTTL)
	if err := api.Run(storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("QuoteFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("QuoteFlow exited successfully")
}

// Config holds environment configuration.
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
	LogLevel    string
	SessionTTL  string
}

// Flags holds command line flag values.
type Flags struct {
	stateDir   *string
	dbDSN      *string
	openaiKey  *string
	apiAddr    *string
	logLevel   *string
	sessionTTL *time.Duration
}

// loadEnvironmentConfig loads configuration from environment variables
// and an optional .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    util.GetEnvOrDefault("QUOTEFLOW_STATE_DIR", DefaultStateDir),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		LogLevel:    util.GetEnvOrDefault("QUOTEFLOW_LOG_LEVEL", "info"),
		SessionTTL:  os.Getenv("SESSION_TTL"),
	}

	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
	}
	if util.ParseBoolEnv("QUOTEFLOW_DEBUG", false) {
		config.LogLevel = "debug"
	}
	return config
}

// parseCommandLineFlags parses command line arguments with environment
// defaults.
func parseCommandLineFlags(config Config) Flags {
	defaultTTL := store.DefaultSessionTTL
	if config.SessionTTL != "" {
		if d, err := time.ParseDuration(config.SessionTTL); err == nil {
			defaultTTL = d
		} else {
			slog.Warn("Invalid SESSION_TTL, using default", "value", config.SessionTTL, "error", err)
		}
	}

	flags := Flags{
		stateDir:   flag.String("state-dir", config.StateDir, "state directory for QuoteFlow data (overrides $QUOTEFLOW_STATE_DIR)"),
		dbDSN:      flag.String("db-dsn", config.DatabaseURL, "database DSN for session persistence (overrides $DATABASE_URL)"),
		openaiKey:  flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:    flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		logLevel:   flag.String("log-level", config.LogLevel, "log level: debug, info, warn, error (overrides $QUOTEFLOW_LOG_LEVEL)"),
		sessionTTL: flag.Duration("session-ttl", defaultTTL, "inactive session lifetime before sweep (overrides $SESSION_TTL)"),
	}
	flag.Parse()

	// A custom state dir moves the default SQLite path along with it.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
	}
	return flags
}

// initializeLogger sets up structured logging at the configured level.
func initializeLogger(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
}

// ensureDirectoriesExist creates the state directory for file-based
// storage.
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	return os.MkdirAll(stateDir, 0755)
}

// buildStoreOptions constructs store configuration options.
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	}
	storeOpts = append(storeOpts, store.WithTTL(*flags.sessionTTL))
	return storeOpts
}

// buildGenAIOptions constructs generative client configuration options.
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options.
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
