// Package cli wires configuration into a running bot for the yokobot commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	yokopoke "github.com/YOKOPOKE/yokopoke-sub000"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/config"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/file"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/memory"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/openai"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/postgres"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/redis"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/whatsapp"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/hours"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/observability"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/persistence"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
)

// keyPrefix namespaces lock and claim keys next to the session records.
const keyPrefix = "yokopoke:"

// App is a fully wired bot plus the resources the commands need to shut it down.
type App struct {
	Bot     *yokopoke.Bot
	Store   ports.SessionStore
	Metrics *observability.Metrics

	// Health reports whether the backing services are reachable.
	Health func(context.Context) error

	closers []func() error
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// NewLogger creates the application logger from the log section.
func NewLogger(cfg config.Log) *slog.Logger {
	return logging.NewWithOptions(logging.Options{
		Level:  logging.ParseLevel(cfg.Level),
		JSON:   cfg.JSON,
		Redact: logging.DefaultRedactPatterns,
	})
}

// OpenStore creates the session store selected by the storage section.
// The returned close function is never nil.
func OpenStore(cfg config.Config) (ports.SessionStore, func() error, error) {
	noop := func() error { return nil }

	var codec persistence.Codec
	if cfg.Storage.EncryptionKey != "" {
		enc, err := encryptedCodec(cfg.Storage)
		if err != nil {
			return nil, noop, err
		}
		codec = enc
	}

	switch cfg.Storage.Driver {
	case config.StorageFile:
		var opts []file.Option
		if codec != nil {
			opts = append(opts, file.WithCodec(codec))
		}
		return file.New(cfg.Storage.Path, opts...), noop, nil
	case config.StorageRedis:
		opts := []redis.Option{
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.SessionTTL),
		}
		if codec != nil {
			opts = append(opts, redis.WithCodec(codec))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		return store, store.Close, nil
	case config.StorageMemory:
		if codec != nil {
			return nil, noop, errors.New("encryption is not supported by the memory store")
		}
		return memory.NewStore(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func encryptedCodec(cfg config.Storage) (persistence.Codec, error) {
	active, err := persistence.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	ec := persistence.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := persistence.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		ec.FallbackKeys = append(ec.FallbackKeys, key)
	}
	return persistence.NewEncryptedCodec(persistence.JSONCodec{}, ec)
}

// Build creates every adapter named by cfg and the Bot on top of them.
// A nil gateway delivers through the WhatsApp Cloud API.
func Build(ctx context.Context, cfg config.Config, gateway ports.Gateway, logger *slog.Logger) (app *App, err error) {
	app = &App{Health: func(context.Context) error { return nil }}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	store, closeStore, err := OpenStore(cfg)
	if err != nil {
		return app, err
	}
	app.Store = store
	app.closers = append(app.closers, closeStore)

	cat, err := memory.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return app, err
	}

	schedule, err := hours.Load(cfg.Hours.Open, cfg.Hours.Close, cfg.Hours.Zone)
	if err != nil {
		return app, err
	}

	orders, err := openOrders(ctx, cfg.Postgres, logger, app)
	if err != nil {
		return app, err
	}

	app.Metrics = observability.NewMetrics()

	opts := []yokopoke.Option{
		yokopoke.WithLogger(logger),
		yokopoke.WithSchedule(schedule),
		yokopoke.WithHooks(app.Metrics.Hooks()),
		yokopoke.WithCatalogTTL(cfg.Catalog.TTL),
		yokopoke.WithDebounce(cfg.Conversation.Debounce),
		yokopoke.WithStaleAfter(cfg.Conversation.StaleLock),
		yokopoke.WithIdleTimeout(cfg.Conversation.IdleTimeout),
		yokopoke.WithPauseDuration(cfg.Conversation.Pause),
		yokopoke.WithRateLimit(cfg.Conversation.RateLimit, cfg.Conversation.RateWindow),
		yokopoke.WithMaxInput(cfg.Conversation.MaxInput),
		yokopoke.WithMaintenance(cfg.Conversation.Maintenance),
	}

	if rs, ok := store.(*redis.Store); ok {
		opts = append(opts,
			yokopoke.WithLocker(redis.NewLocker(rs.Client(), keyPrefix)),
			yokopoke.WithClaimer(redis.NewClaimer(rs.Client(), keyPrefix, redis.DefaultClaimTTL)),
		)
		app.Health = rs.Ping
	}

	var wa *whatsapp.Client
	if gateway == nil {
		wa = whatsapp.New(whatsapp.Config{
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			AccessToken:   cfg.WhatsApp.AccessToken,
			BaseURL:       cfg.WhatsApp.BaseURL,
		}, whatsapp.WithLogger(logger))
		gateway = wa
	}
	opts = append(opts, yokopoke.WithGateway(gateway))

	if cfg.OpenAI.APIKey != "" {
		llm := openai.New(openai.Config{
			APIKey:          cfg.OpenAI.APIKey,
			BaseURL:         cfg.OpenAI.BaseURL,
			Model:           cfg.OpenAI.Model,
			TranscribeModel: cfg.OpenAI.TranscribeModel,
			Timeout:         cfg.OpenAI.Timeout,
		}, openai.WithLogger(logger))
		opts = append(opts, yokopoke.WithClassifier(llm))
		if wa != nil {
			opts = append(opts, yokopoke.WithVoiceNotes(wa, llm))
		}
	} else {
		logger.Warn("OPENAI_API_KEY not set, free text falls back to keyword routing")
	}

	app.Bot, err = yokopoke.New(store, cat, orders, opts...)
	if err != nil {
		return app, err
	}
	return app, nil
}

func openOrders(ctx context.Context, cfg config.Postgres, logger *slog.Logger, app *App) (ports.OrderStore, error) {
	if cfg.DSN == "" {
		logger.Warn("DATABASE_URL not set, orders are kept in memory")
		return memory.NewOrderStore(), nil
	}
	db, err := postgres.Open(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		app.closers = append(app.closers, sqlDB.Close)
	}
	orders := postgres.NewOrderStore(db, postgres.WithLogger(logger))
	if cfg.Migrate {
		if err := orders.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate orders: %w", err)
		}
	}
	return orders, nil
}
