package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/external/broker"
	"github.com/wonny/tradebot/internal/external/fundamentals"
	"github.com/wonny/tradebot/internal/external/notify"
	"github.com/wonny/tradebot/internal/external/paper"
	"github.com/wonny/tradebot/internal/external/telegram"
	"github.com/wonny/tradebot/internal/settings"
	"github.com/wonny/tradebot/internal/storage"
	"github.com/wonny/tradebot/internal/storage/memory"
	"github.com/wonny/tradebot/internal/storage/postgres"
	"github.com/wonny/tradebot/internal/storage/redisstore"
	"github.com/wonny/tradebot/internal/strategyconfig"
	"github.com/wonny/tradebot/internal/usecase"
	"github.com/wonny/tradebot/pkg/config"
	"github.com/wonny/tradebot/pkg/database"
	"github.com/wonny/tradebot/pkg/httputil"
	"github.com/wonny/tradebot/pkg/logger"
	"github.com/wonny/tradebot/pkg/redis"
)

// App is the assembled bot: storage, collaborators and the pipeline runner
// ⭐ SSOT: backend and collaborator selection happens here only
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Strategy *strategyconfig.Config
	Store    *storage.Store
	Gateway  contracts.Gateway
	Notifier contracts.Notifier
	Settings *settings.Service
	Runner   *usecase.Runner
	// Database is set only for the postgres backend
	Database *database.DB

	closers []func() error
}

// Parts are the already-built pieces Assemble wires together
type Parts struct {
	Config   *config.Config
	Logger   *logger.Logger
	Strategy *strategyconfig.Config
	Store    *storage.Store
	Gateway  contracts.Gateway
	Notifier contracts.Notifier
	Database *database.DB
	// Now defaults to time.Now
	Now func() time.Time
}

// New opens every backend selected by cfg and assembles the bot
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	strategy, err := strategyconfig.LoadOrDefault(cfg.StrategyConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy config: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, err
	}

	store, db, err := OpenStore(ctx, cfg, redisClient)
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	var closers []func() error
	closers = append(closers, store.Close)
	if cfg.StorageBackend != config.StorageRedis {
		// the redis store owns the client otherwise
		closers = append(closers, redisClient.Close)
	}

	a, err := Assemble(ctx, Parts{
		Config:   cfg,
		Logger:   log,
		Strategy: strategy,
		Store:    store,
		Database: db,
		Gateway:  NewGateway(cfg, strategy, redisClient, log),
		Notifier: NewNotifier(cfg, redisClient, log),
	})
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	a.closers = closers

	log.WithFields(map[string]interface{}{
		"storage":  store.Backend,
		"paper":    cfg.Broker.Paper,
		"telegram": cfg.Telegram.Enabled(),
		"strategy": strategy.Meta.StrategyID,
	}).Info("Application assembled")

	return a, nil
}

// Assemble builds the settings service and the runner over parts
func Assemble(ctx context.Context, p Parts) (*App, error) {
	if p.Strategy == nil {
		p.Strategy = strategyconfig.Default()
	}
	if p.Config == nil {
		p.Config = &config.Config{Timezone: "UTC"}
	}

	hash, err := strategyconfig.Hash(p.Strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}

	settingsService := settings.NewService(p.Store.Settings, p.Logger)
	if err := settingsService.EnsureDefaults(ctx); err != nil {
		return nil, fmt.Errorf("ensure default settings: %w", err)
	}

	registry := usecase.Pipelines(usecase.Deps{
		Gateway:  p.Gateway,
		Store:    p.Store,
		Settings: settingsService,
		Notifier: p.Notifier,
		Config:   p.Strategy,
		Location: p.Config.Location(),
		Logger:   p.Logger,
		Now:      p.Now,
	})

	return &App{
		Config:   p.Config,
		Logger:   p.Logger,
		Strategy: p.Strategy,
		Store:    p.Store,
		Gateway:  p.Gateway,
		Notifier: p.Notifier,
		Settings: settingsService,
		Runner:   usecase.NewRunner(registry, p.Store.Executions, hash, p.Logger),
		Database: p.Database,
	}, nil
}

// Close releases every backend connection
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ============================================================
// Backend selection
// ============================================================

// OpenStore opens the storage backend named by cfg.StorageBackend.
// The returned DB is nil unless the backend is postgres.
func OpenStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*storage.Store, *database.DB, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory, "":
		return memory.NewStore(), nil, nil

	case config.StorageRedis:
		if redisClient == nil || !redisClient.Enabled() {
			return nil, nil, fmt.Errorf("redis storage backend requires an enabled redis client")
		}
		return redisstore.NewStore(redisClient), nil, nil

	case config.StoragePostgres:
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return postgres.NewStore(db), db, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// NewGateway returns the paper broker or the REST broker client
func NewGateway(cfg *config.Config, strategy *strategyconfig.Config, redisClient *redis.Client, log *logger.Logger) contracts.Gateway {
	if cfg.Broker.Paper {
		return paper.NewDemoSeries(time.Now(), strategy.Analysis.Interval(), strategy.Analysis.Window())
	}

	scraper := fundamentals.NewClient(cfg.Fundamentals.BaseURL, scraperHTTPClient(cfg, redisClient, log), log)
	cache := redis.NewCache(redisClient, cfg.Redis.Prefix)

	return broker.NewClient(cfg.Broker, cache, scraper, log).
		WithInterval(strategy.Analysis.CandleInterval)
}

// scraperHTTPClient shares the portal request budget across processes when
// redis is available
func scraperHTTPClient(cfg *config.Config, redisClient *redis.Client, log *logger.Logger) *httputil.Client {
	client := httputil.New(log)
	if redisClient != nil && redisClient.Enabled() {
		client.WithRateLimiter(redis.NewRateLimiter(redisClient, cfg.Redis.Prefix), redis.FundamentalsRateLimit)
	}
	return client
}

// NewNotifier returns the Telegram client, or a log-only notifier when
// Telegram is not configured
func NewNotifier(cfg *config.Config, redisClient *redis.Client, log *logger.Logger) contracts.Notifier {
	if !cfg.Telegram.Enabled() {
		return notify.NewLogNotifier(log)
	}

	var limiter *redis.RateLimiter
	if redisClient != nil && redisClient.Enabled() {
		limiter = redis.NewRateLimiter(redisClient, cfg.Redis.Prefix)
	}
	return telegram.NewClient(cfg.Telegram, limiter, log)
}
