package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every recognized environment override.
const EnvPrefix = "CHATTERBOX_"

// Loader reads configuration in three layers: optional .env file,
// optional yaml file, then CHATTERBOX_* environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader with the default search behaviour.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      "",
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the yaml config file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin.
type Result struct {
	Config *Config
	Path   string
}

// Load assembles the effective configuration.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment variables")
		}
	}

	cfg := DefaultConfig()

	path := l.path
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}

	origin := "defaults"
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		origin = path
	case os.IsNotExist(err) && l.path == "":
		// optional file missing, defaults stand
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   origin,
	}, nil
}

// Validate rejects configurations the server cannot start with.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Audio.MaxTextLength <= 0 {
		return fmt.Errorf("max_text_length must be positive, got %d", cfg.Audio.MaxTextLength)
	}
	switch cfg.Cache.Driver {
	case "", "none", "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Host, "HOST")
	setInt(&cfg.Server.Port, "PORT")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Dir, "LOG_DIR")
	setString(&cfg.Log.File, "LOG_FILE")

	setStringList(&cfg.CORS.AllowOrigins, "ALLOW_ORIGINS")
	setBool(&cfg.CORS.AllowCredentials, "ALLOW_CREDENTIALS")

	setString(&cfg.Web.StaticDir, "STATIC_DIR")

	setString(&cfg.Models.Default, "DEFAULT_MODEL")
	setStringList(&cfg.Models.Preload, "PRELOAD_MODELS")
	setString(&cfg.Models.Device, "DEVICE")
	setString(&cfg.Models.RunnerCommand, "RUNNER_COMMAND")
	setString(&cfg.Models.WorkDir, "WORK_DIR")
	setDuration(&cfg.Models.LoadTimeout, "LOAD_TIMEOUT")
	setDuration(&cfg.Models.GenerateTimeout, "GENERATE_TIMEOUT")

	setInt(&cfg.Audio.MaxTextLength, "MAX_TEXT_LENGTH")
	setString(&cfg.Audio.OutputFormat, "OUTPUT_FORMAT")
	setString(&cfg.Audio.TempDir, "TEMP_DIR")

	setString(&cfg.Cache.Driver, "CACHE_DRIVER")
	setDuration(&cfg.Cache.TTL, "CACHE_TTL")
	setString(&cfg.Cache.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Cache.Redis.Username, "REDIS_USERNAME")
	setString(&cfg.Cache.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Cache.Redis.DB, "REDIS_DB")
	setString(&cfg.Cache.SQLite.DSN, "CACHE_DSN")

	setString(&cfg.Dataset.Name, "DATASET")
	setString(&cfg.Dataset.Endpoint, "DATASET_ENDPOINT")

	setString(&cfg.HFToken, "HF_TOKEN")
}

func lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func setString(dst *string, key string) {
	if value, ok := lookup(key); ok {
		*dst = value
	}
}

func setStringList(dst *[]string, key string) {
	if value, ok := lookup(key); ok {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if value, ok := lookup(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if value, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if value, ok := lookup(key); ok {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			*dst = d
		}
	}
}
