// Package config holds runtime settings for the scenescript command.
// Values come from defaults, an optional .env file and SCENESCRIPT_*
// environment variables, in that order; command-line flags override all
// of them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ivlev/scenescript/internal/timeline"
)

const (
	DefaultScriptPath = "script/scenes.yaml"
	DefaultScriptDir  = "script"
	DefaultPlanOut    = "out/render_plan.json"
	DefaultSlateDir   = "out/slates"
	DefaultPort       = 4174
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"

	EnvScript     = "SCENESCRIPT_SCRIPT"
	EnvPlanOut    = "SCENESCRIPT_PLAN_OUT"
	EnvDBPath     = "SCENESCRIPT_DB_PATH"
	EnvPort       = "SCENESCRIPT_PORT"
	EnvLogLevel   = "SCENESCRIPT_LOG_LEVEL"
	EnvLogFormat  = "SCENESCRIPT_LOG_FORMAT"
	EnvWorkers    = "SCENESCRIPT_WORKERS"
	EnvBackground = "SCENESCRIPT_BACKGROUND"
	EnvSlateDir   = "SCENESCRIPT_SLATE_DIR"
)

type Config struct {
	ScriptPath string
	PlanOut    string
	DBPath     string // empty disables the SQLite plan store
	SlateDir   string
	Port       int
	LogLevel   string
	LogFormat  string // "text" or "json"
	Workers    int    // 0 picks a value from the host
	Background string // default background for scripts that set none
	JSONL      bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ScriptPath: DefaultScriptPath,
		PlanOut:    DefaultPlanOut,
		SlateDir:   DefaultSlateDir,
		Port:       DefaultPort,
		LogLevel:   DefaultLogLevel,
		LogFormat:  DefaultLogFormat,
		Background: timeline.DefaultBackground,
	}
}

// Load returns Default overridden by the files named in envFiles (".env"
// when none are given; missing files are ignored) and by the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if v := os.Getenv(EnvScript); v != "" {
		cfg.ScriptPath = v
	}
	if v := os.Getenv(EnvPlanOut); v != "" {
		cfg.PlanOut = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvSlateDir); v != "" {
		cfg.SlateDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv(EnvBackground); v != "" {
		cfg.Background = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		cfg.Workers = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail late.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers %d: must be >= 0", c.Workers)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: use text or json", c.LogFormat)
	}
	return nil
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)
