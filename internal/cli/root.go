// Package cli implements the garmin command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sstent/garmin-summary/internal/cache"
	"github.com/sstent/garmin-summary/internal/config"
	"github.com/sstent/garmin-summary/internal/corrections"
	"github.com/sstent/garmin-summary/internal/database"
	"github.com/sstent/garmin-summary/internal/logger"
	"github.com/sstent/garmin-summary/internal/parser"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// globalFlags override values loaded by config.Load when set.
type globalFlags struct {
	dataDir     string
	cacheDir    string
	store       string
	cacheFile   string
	dbPath      string
	driver      string
	corrections string
	extensions  []string
	workers     int
	hashRecheck bool
	taskTimeout time.Duration
	logLevel    string
	verbose     bool
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "garmin",
		Short: "Summarize Garmin activity files",
		Long: `Keeps a cache of per-file activity summaries for a directory of FIT, TCX,
GPX and TXT files and reports them by day, week, month and year.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.dataDir, "data-dir", "", "Directory holding activity files (GARMIN_DATA_DIR)")
	pf.StringVar(&flags.cacheDir, "cache-dir", "", "Per-file side cache directory, \"off\" disables (GARMIN_CACHE_DIR)")
	pf.StringVar(&flags.store, "store", "", "Summary store: file, sqlite or memory (GARMIN_STORE)")
	pf.StringVar(&flags.cacheFile, "cache-file", "", "Summary cache file for the file store (GARMIN_CACHE_FILE)")
	pf.StringVar(&flags.dbPath, "db", "", "Database path for the sqlite store (GARMIN_DB_PATH)")
	pf.StringVar(&flags.driver, "driver", "", "SQL driver: sqlite3 or sqlite (GARMIN_SQL_DRIVER)")
	pf.StringVar(&flags.corrections, "corrections", "", "Corrections JSON file (GARMIN_CORRECTIONS)")
	pf.StringSliceVar(&flags.extensions, "extensions", nil, "File name patterns to pick up, e.g. .fit,.tcx,.gpx (GARMIN_EXTENSIONS)")
	pf.IntVarP(&flags.workers, "workers", "j", 0, "Files parsed in parallel (GARMIN_WORKERS)")
	pf.BoolVar(&flags.hashRecheck, "hash-recheck", true, "Recompute fingerprints of files already cached (GARMIN_HASH_RECHECK)")
	pf.DurationVar(&flags.taskTimeout, "task-timeout", 0, "Skip files whose parse takes longer (GARMIN_TASK_TIMEOUT)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (GARMIN_LOG_LEVEL)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	rootCmd.AddCommand(
		newBuildCmd(flags),
		newReportCmd(flags),
		newInvalidateCmd(flags),
		newServeCmd(flags),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig applies the flags the user set on top of config.Load.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	pf := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if pf.Changed(name) {
			*dst = v
		}
	}
	set("data-dir", &cfg.DataDir, flags.dataDir)
	set("cache-dir", &cfg.CacheDir, flags.cacheDir)
	set("store", &cfg.Store, flags.store)
	set("cache-file", &cfg.CacheFile, flags.cacheFile)
	set("db", &cfg.DatabasePath, flags.dbPath)
	set("driver", &cfg.SQLDriver, flags.driver)
	set("corrections", &cfg.CorrectionsPath, flags.corrections)
	set("log-level", &cfg.LogLevel, flags.logLevel)
	if pf.Changed("extensions") {
		cfg.Extensions = config.ParseExtensions(flags.extensions...)
	}
	if pf.Changed("workers") {
		cfg.Workers = flags.workers
	}
	if pf.Changed("hash-recheck") {
		cfg.HashRecheck = flags.hashRecheck
	}
	if pf.Changed("task-timeout") {
		cfg.TaskTimeout = flags.taskTimeout
	}
	if flags.verbose {
		cfg.LogLevel = "debug"
	}
	if cfg.CacheDir == "off" {
		cfg.CacheDir = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app wires the configured store, parser and engine for one command.
type app struct {
	cfg         *config.Config
	store       cache.Store
	db          *database.SQLiteDB // set for the sqlite store
	corrections corrections.Table
	engine      *cache.Engine
}

func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	switch cfg.Store {
	case config.StoreFile:
		a.store = cache.NewFileStore(cfg.CacheFile, logger.Logger)
	case config.StoreSQLite:
		db, err := database.New(cfg.SQLDriver, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.store = db
	case config.StoreMemory:
		a.store = cache.NewMemoryStore()
	}

	a.corrections, err = corrections.Load(cfg.CorrectionsPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []cache.EngineOption{
		cache.WithWorkers(cfg.Workers),
		cache.WithCorrections(a.corrections),
		cache.WithTaskTimeout(cfg.TaskTimeout),
		cache.WithLogger(logger.Logger),
	}
	if len(cfg.Extensions) > 0 {
		opts = append(opts, cache.WithExtensions(cfg.Extensions...))
	}
	if cfg.CacheDir != "" {
		opts = append(opts, cache.WithSideCache(cache.NewSideCache(cfg.CacheDir)))
	}
	a.engine = cache.NewEngine(a.store, parser.Default, opts...)

	logger.Debug("configuration loaded",
		slog.String("store", cfg.Store),
		slog.String("data_dir", cfg.DataDir),
		slog.Int("workers", cfg.Workers),
		slog.Any("extensions", a.engine.Extensions()))
	return a, nil
}

// paths returns args, or the data directory when none are given.
func (a *app) paths(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return []string{a.cfg.DataDir}
}

func (a *app) options() cache.Options {
	return cache.Options{HashRecheck: a.cfg.HashRecheck}
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}
}
