// Package config loads the runtime configuration from .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// SQL drivers. sqlite3 needs cgo, sqlite is pure Go.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

var (
	ErrInvalidStore   = errors.New("invalid store kind")
	ErrInvalidDriver  = errors.New("invalid sql driver")
	ErrInvalidWorkers = errors.New("worker count must be positive")
)

// Config holds the application configuration.
type Config struct {
	DataDir         string
	CacheDir        string // per-file side cache, empty disables it (GARMIN_CACHE_DIR=off)
	Store           string
	CacheFile       string
	DatabasePath    string
	SQLDriver       string
	CorrectionsPath string
	Extensions      []string // file name patterns to pick up, nil means the engine default
	Workers         int
	HashRecheck     bool
	TaskTimeout     time.Duration
	Schedule        string
	ListenAddr      string
	LogLevel        string
}

const (
	defaultSchedule   = "@hourly"
	defaultListenAddr = ":8888"
)

// Load reads configuration from the first .env file found and then from
// environment variables, which take precedence.
func Load() (*Config, error) {
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	base := baseDir()
	dataDir := getEnvString("GARMIN_DATA_DIR", filepath.Join(base, "run"))
	cfg := &Config{
		DataDir:         dataDir,
		CacheDir:        getEnvString("GARMIN_CACHE_DIR", filepath.Join(dataDir, "cache")),
		Store:           getEnvString("GARMIN_STORE", StoreFile),
		CacheFile:       getEnvString("GARMIN_CACHE_FILE", filepath.Join(base, "garmin_cache.gob.gz")),
		DatabasePath:    getEnvString("GARMIN_DB_PATH", filepath.Join(base, "garmin_summary.db")),
		SQLDriver:       getEnvString("GARMIN_SQL_DRIVER", DriverCGO),
		CorrectionsPath: getEnvString("GARMIN_CORRECTIONS", filepath.Join(base, "garmin_corrections.json")),
		Extensions:      ParseExtensions(os.Getenv("GARMIN_EXTENSIONS")),
		Workers:         getEnvInt("GARMIN_WORKERS", runtime.NumCPU()),
		HashRecheck:     getEnvBool("GARMIN_HASH_RECHECK", true),
		TaskTimeout:     getEnvDuration("GARMIN_TASK_TIMEOUT", 0),
		Schedule:        getEnvString("GARMIN_SCHEDULE", defaultSchedule),
		ListenAddr:      getEnvString("GARMIN_LISTEN_ADDR", defaultListenAddr),
		LogLevel:        getEnvString("GARMIN_LOG_LEVEL", "info"),
	}

	if cfg.CacheDir == "off" {
		cfg.CacheDir = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be corrected by a default.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStore, c.Store)
	}
	switch c.SQLDriver {
	case DriverCGO, DriverPureGo:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.SQLDriver)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	return nil
}

// EnsureDirs creates the directories the selected store writes into.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.CacheDir}
	switch c.Store {
	case StoreFile:
		dirs = append(dirs, filepath.Dir(c.CacheFile))
	case StoreSQLite:
		dirs = append(dirs, filepath.Dir(c.DatabasePath))
	}
	for _, d := range dirs {
		if err := ensureDir(d); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}
	return nil
}

// baseDir is ~/.garmin_cache, or a relative .garmin_cache when there is no
// home directory.
func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".garmin_cache"
	}
	return filepath.Join(home, ".garmin_cache")
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	paths = append(paths, filepath.Join(baseDir(), ".env"))
	return paths
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts values like "30s" or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ParseExtensions splits comma separated lists like ".fit, tcx,.gpx" into
// dotted patterns. It returns nil when nothing is listed.
func ParseExtensions(values ...string) []string {
	var exts []string
	for _, v := range values {
		for _, ext := range strings.Split(v, ",") {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			exts = append(exts, ext)
		}
	}
	return exts
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
