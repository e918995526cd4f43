package app

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"runtime"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"camptrade/internal/app/attempt"
	"camptrade/internal/app/config"
	"camptrade/internal/app/events"
	"camptrade/internal/app/logger"
	"camptrade/internal/app/metrics"
	"camptrade/internal/app/service/exchange"
	"camptrade/internal/app/service/settlement"
	"camptrade/internal/app/service/syncer"
	"camptrade/internal/app/session"
	"camptrade/internal/app/storage"
	"camptrade/internal/app/storage/memory"
	"camptrade/internal/app/storage/postgres"
	"camptrade/pkg/catalog"
)

type App struct {
	config  config.Config
	logger  logger.Logger
	db      *sql.DB
	redis   *redis.Client
	metrics *metrics.Metrics
	session session.Manager

	transactions storage.TransactionRepository
	settlements  storage.SettlementRepository
	rewards      storage.RewardRepository
	catalog      storage.CatalogStore
	publisher    events.Publisher
	limiter      attempt.Limiter

	exchange *exchange.Service
	syncer   *syncer.Service
	stopCh   chan struct{}
}

func New(cfg config.Config, logger logger.Logger, e embed.FS) (*App, error) {
	a := &App{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
		session: session.NewJWT(cfg.SecretKey),
		stopCh:  make(chan struct{}),
	}

	if err := a.initStorage(e); err != nil {
		return nil, err
	}

	if err := a.initCatalog(); err != nil {
		return nil, err
	}

	if err := a.initLimiter(); err != nil {
		return nil, err
	}

	a.publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Publishing completion events")
	}

	coordinator := settlement.NewCoordinator(a.settlements, a.rewards, a.catalog,
		settlement.WithPublisher(a.publisher),
		settlement.WithMetrics(a.metrics),
	)

	a.exchange = exchange.NewService(a.transactions, a.rewards, coordinator,
		exchange.WithLimiter(a.limiter),
		exchange.WithMetrics(a.metrics),
	)

	a.syncer = syncer.New(a.settlements, coordinator, syncer.WithFetchInterval(cfg.Settlement.RetryInterval))
	a.syncer.Start(runtime.GOMAXPROCS(0))

	go func() {
		<-a.stopCh
		a.logger.Info().Msg("Shutting down application")
	}()

	return a, nil
}

func (a *App) initStorage(e embed.FS) error {
	if a.config.Storage == config.StorageMemory {
		a.logger.Warn().Msg("Using in-memory storage, data is lost on restart")
		db := memory.NewDB()
		a.transactions = memory.NewTransactionRepository(db)
		a.settlements = memory.NewSettlementRepository(db)
		a.rewards = memory.NewRewardRepository(db)
		return nil
	}

	db, err := sql.Open("postgres", a.config.Database.DSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	if err := applyMigrations(e, db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	transactions, err := postgres.NewTransactionRepository(db)
	if err != nil {
		return fmt.Errorf("transaction repository init: %w", err)
	}

	settlements, err := postgres.NewSettlementRepository(db)
	if err != nil {
		return fmt.Errorf("settlement repository init: %w", err)
	}

	rewards, err := postgres.NewRewardRepository(db)
	if err != nil {
		return fmt.Errorf("reward repository init: %w", err)
	}

	a.db = db
	a.transactions = transactions
	a.settlements = settlements
	a.rewards = rewards

	return nil
}

func (a *App) initCatalog() error {
	if a.config.Catalog.RemoteURL == "" {
		a.logger.Warn().Msg("No catalog address, listings are kept in process")
		a.catalog = memory.NewCatalog()
		return nil
	}

	c, err := catalog.NewClient(a.config.Catalog.RemoteURL, catalog.WithLogger(a.logger.Logger))
	if err != nil {
		return fmt.Errorf("catalog client init: %w", err)
	}
	a.catalog = c

	return nil
}

func (a *App) initLimiter() error {
	cfg := a.config
	if cfg.Redis.Addr == "" {
		a.limiter = attempt.NewMemory(cfg.Attempts.Max, cfg.Attempts.Window)
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	a.redis = rdb
	a.limiter = attempt.NewRedis(rdb, cfg.Attempts.Max, cfg.Attempts.Window)

	return nil
}

func (a *App) Stop() {
	close(a.stopCh)
	a.syncer.Stop()

	if err := a.publisher.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Event publisher close failed")
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
