package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/agentic-research/gamelist/api"
	"github.com/agentic-research/gamelist/internal/catalog"
	"github.com/agentic-research/gamelist/internal/config"
	"github.com/agentic-research/gamelist/internal/log"
	"github.com/agentic-research/gamelist/internal/pathid"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
	logFile    string
)

// runID tags the log lines and the error message of one invocation.
var runID = uuid.NewString()

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to systems config (default $XDG_CONFIG_HOME/gamelist/systems.hcl)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to catalog database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file, rotated")
}

var rootCmd = &cobra.Command{
	Use:           "gamelist",
	Short:         "Gamelist: a catalog of game files and their metadata",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app holds what a subcommand needs once configuration is resolved.
type app struct {
	cfg    *config.Config
	cat    *catalog.Catalog
	logger *log.Logger
}

// loadConfig reads --config, or the default path when it exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if cmd.Flags().Changed("config") {
		c, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else if _, err := os.Stat(config.DefaultPath()); err == nil {
		c, err := config.Load(config.DefaultPath())
		if err != nil {
			return nil, err
		}
		cfg = c
	} else if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	if dbPath != "" {
		cfg.Database = pathid.ExpandHome(dbPath)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if logFile != "" {
		cfg.LogFile = pathid.ExpandHome(logFile)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.Parse(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	asJSON, err := log.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logger := log.NewLogger("gamelist", level, cfg.LogFile, false)
	logger.JSON = asJSON
	return logger, nil
}

// openApp resolves configuration and opens the catalog.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Database != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
			_ = logger.Close()
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	cat, err := catalog.Open(cmd.Context(), cfg.Database, cfg.Declarations(),
		catalog.WithLogger(logger.Named("catalog")))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	logger.Debug("run %s: %s (database %s)", runID, cmd.CommandPath(), cfg.Database)
	return &app{cfg: cfg, cat: cat, logger: logger}, nil
}

// openSystem opens the catalog and looks up the named system.
func openSystem(cmd *cobra.Command, id string) (*app, api.System, error) {
	a, err := openApp(cmd)
	if err != nil {
		return nil, api.System{}, err
	}
	sys, err := a.cfg.System(id)
	if err != nil {
		_ = a.Close()
		return nil, api.System{}, err
	}
	return a, sys, nil
}

func (a *app) Close() error {
	err := a.cat.Close()
	_ = a.logger.Close()
	return err
}

// exitCode maps a command error onto the process exit status.
func exitCode(err error) int {
	if errors.Is(err, catalog.ErrNotFound) {
		return 2
	}
	return 1
}

// errorLine renders a failed run for stderr, carrying the run id that
// prefixes the debug log of the same run.
func errorLine(err error) string {
	return fmt.Sprintf("gamelist: %v (run %s)", err, runID)
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(exitCode(err))
	}
}
