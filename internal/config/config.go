// Package config loads the bot configuration from a YAML file, a .env file and
// the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers for sessions.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// Config is the complete bot configuration.
type Config struct {
	Server       Server       `yaml:"server"`
	WhatsApp     WhatsApp     `yaml:"whatsapp"`
	OpenAI       OpenAI       `yaml:"openai"`
	Storage      Storage      `yaml:"storage"`
	Redis        Redis        `yaml:"redis"`
	Postgres     Postgres     `yaml:"postgres"`
	Catalog      Catalog      `yaml:"catalog"`
	Hours        Hours        `yaml:"hours"`
	Conversation Conversation `yaml:"conversation"`
	Sweeper      Sweeper      `yaml:"sweeper"`
	Log          Log          `yaml:"log"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type WhatsApp struct {
	PhoneNumberID string `yaml:"phone_number_id"`
	AccessToken   string `yaml:"access_token"`
	VerifyToken   string `yaml:"verify_token"`
	AppSecret     string `yaml:"app_secret"`
	BaseURL       string `yaml:"base_url"`
}

type OpenAI struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	TranscribeModel string        `yaml:"transcribe_model"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Storage selects where sessions live. EncryptionKey, when set, encrypts
// session records at rest; FallbackKeys still decrypt records written before a rotation.
type Storage struct {
	Driver        string   `yaml:"driver"`
	Path          string   `yaml:"path"`
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
}

type Redis struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Postgres holds the order store connection. An empty DSN keeps orders in memory.
type Postgres struct {
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

type Catalog struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

type Hours struct {
	Open  int    `yaml:"open"`
	Close int    `yaml:"close"`
	Zone  string `yaml:"zone"`
}

type Conversation struct {
	Debounce    time.Duration `yaml:"debounce"`
	StaleLock   time.Duration `yaml:"stale_lock"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Pause       time.Duration `yaml:"pause"`
	RateLimit   int           `yaml:"rate_limit"`
	RateWindow  time.Duration `yaml:"rate_window"`
	MaxInput    int           `yaml:"max_input"`
	Maintenance bool          `yaml:"maintenance"`
}

// Sweeper configures the background job that resets abandoned sessions.
type Sweeper struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server:  Server{Addr: ":8080", ShutdownTimeout: 15 * time.Second},
		OpenAI:  OpenAI{Timeout: 8 * time.Second},
		Storage: Storage{Driver: StorageMemory, Path: ".yokopoke/sessions"},
		Redis:   Redis{Addr: "localhost:6379", Prefix: "yokopoke:session:", SessionTTL: 24 * time.Hour},
		Catalog: Catalog{Path: "catalog.yaml", TTL: 5 * time.Minute},
		Hours:   Hours{Open: 14, Close: 22, Zone: "America/Mexico_City"},
		Conversation: Conversation{
			Debounce:    1500 * time.Millisecond,
			StaleLock:   30 * time.Second,
			IdleTimeout: 2 * time.Hour,
			Pause:       time.Hour,
			RateLimit:   20,
			RateWindow:  time.Minute,
			MaxInput:    1000,
		},
		Sweeper: Sweeper{Enabled: true, Schedule: "@every 1m"},
		Log:     Log{Level: "info"},
	}
}

// Load builds the configuration. A missing file at path is not an error;
// an explicitly named file that cannot be parsed is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	// Real environment variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	dur := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(dst *int, key string) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(dst *bool, key string) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str(&c.Server.Addr, "YOKO_ADDR")
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	str(&c.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_ID")
	str(&c.WhatsApp.AccessToken, "WHATSAPP_ACCESS_TOKEN")
	str(&c.WhatsApp.VerifyToken, "WHATSAPP_VERIFY_TOKEN")
	str(&c.WhatsApp.AppSecret, "WHATSAPP_APP_SECRET")
	str(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	str(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	str(&c.OpenAI.Model, "OPENAI_MODEL")
	str(&c.Storage.Driver, "YOKO_STORAGE")
	str(&c.Storage.Path, "YOKO_STORAGE_PATH")
	str(&c.Storage.EncryptionKey, "YOKO_SESSION_KEY")
	if v, ok := lookup("YOKO_SESSION_FALLBACK_KEYS"); ok && v != "" {
		c.Storage.FallbackKeys = strings.Split(v, ",")
	}
	str(&c.Redis.Addr, "REDIS_ADDR")
	str(&c.Redis.Password, "REDIS_PASSWORD")
	num(&c.Redis.DB, "REDIS_DB")
	str(&c.Postgres.DSN, "DATABASE_URL")
	str(&c.Catalog.Path, "YOKO_CATALOG")
	dur(&c.Catalog.TTL, "YOKO_CATALOG_TTL")
	num(&c.Hours.Open, "YOKO_OPEN_HOUR")
	num(&c.Hours.Close, "YOKO_CLOSE_HOUR")
	str(&c.Hours.Zone, "YOKO_TIMEZONE")
	dur(&c.Conversation.Debounce, "YOKO_DEBOUNCE")
	num(&c.Conversation.RateLimit, "YOKO_RATE_LIMIT")
	num(&c.Conversation.MaxInput, "YOKO_MAX_INPUT")
	flag(&c.Conversation.Maintenance, "YOKO_MAINTENANCE")
	str(&c.Log.Level, "YOKO_LOG_LEVEL")
	flag(&c.Log.JSON, "YOKO_LOG_JSON")

	return errors.Join(errs...)
}

// Validate checks values that would otherwise fail deep inside the bot.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory, StorageFile, StorageRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Hours.Open < 0 || c.Hours.Close > 24 || c.Hours.Open >= c.Hours.Close {
		errs = append(errs, fmt.Errorf("invalid business hours %d-%d", c.Hours.Open, c.Hours.Close))
	}
	if c.Conversation.RateLimit <= 0 {
		errs = append(errs, errors.New("rate_limit must be positive"))
	}
	if c.Conversation.Debounce < 0 {
		errs = append(errs, errors.New("debounce cannot be negative"))
	}
	return errors.Join(errs...)
}
