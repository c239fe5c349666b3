package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CTAG07/vomarkov/pkg/corpus"
	"github.com/CTAG07/vomarkov/pkg/text"
)

// app carries the state shared by every command: configuration, the logger
// and the corpus store. It is populated by open before a command runs.
type app struct {
	configPath string
	logLevel   string

	config *Config
	logger *slog.Logger
	db     *sql.DB
	store  *corpus.Store
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "vomarkov",
		Short:        "Train and sample variable-order Markov chains over text corpora",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "./config.json", "path to the JSON configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newCorpusCmd(a),
		newGenerateCmd(a),
		newServeCmd(a),
	)
	return root
}

// open loads the configuration, sets up logging and opens the corpus store.
func (a *app) open(logOut io.Writer) error {
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		config.LogLevel = a.logLevel
	}
	a.config = config
	a.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	db, err := initDB(config.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db

	if err = corpus.SetupSchema(db); err != nil {
		return fmt.Errorf("failed to setup corpus schema: %w", err)
	}
	if err = setupAuthSchema(db); err != nil {
		return fmt.Errorf("failed to setup auth schema: %w", err)
	}

	store, err := corpus.NewStore(db, text.NewDefaultTokenizer())
	if err != nil {
		return fmt.Errorf("failed to create corpus store: %w", err)
	}
	store.SetLogger(a.logger)
	a.store = store
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && a.logger != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
		a.db = nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
