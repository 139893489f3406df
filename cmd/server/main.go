package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"passbook/backend/internal/cache"
	"passbook/backend/internal/catalog"
	"passbook/backend/internal/config"
	"passbook/backend/internal/events"
	"passbook/backend/internal/httpapi"
	"passbook/backend/internal/logging"
	"passbook/backend/internal/payment"
	"passbook/backend/internal/service"
	"passbook/backend/internal/store"
	"passbook/backend/internal/store/memory"
	pgstore "passbook/backend/internal/store/postgres"
	sqlitestore "passbook/backend/internal/store/sqlite"
	"passbook/backend/internal/upstream"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}
	if err := validateSecurityConfig(cfg); err != nil {
		logger.WithError(err).Fatal("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 3)

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("repository unavailable")
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	ledgerCache, closeCache := openCache(ctx, cfg, logger)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("event publisher unavailable")
	}
	closers = append(closers, publisher.Close)

	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout(), upstream.DefaultPaths())
	svc := service.New(service.Deps{
		Upstream: client,
		Repo:     repo,
		Cache:    ledgerCache,
		CacheTTL: cfg.LedgerCacheTTL(),
		Events:   publisher,
		Catalog:  catalog.NewSearcher(cfg.LowStockThreshold),
		Payments: payment.NewValidator(cfg.PaymentTolerance),
		Logger:   logger,
		Location: cfg.Location,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), cfg.ManagerPIN)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Exports fan out to every upstream source before writing.
		WriteTimeout: cfg.UpstreamTimeout() + 20*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     cfg.Address(),
			"upstream": cfg.UpstreamBaseURL,
		}).Info("passbook backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error(logger, "main", "main", "shutdown", nil, err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logging.Error(logger, "main", "main", "close", nil, err)
		}
	}

	logger.Info("server stopped")
}

func openRepository(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (store.Repository, func() error, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		logger.Info("repository: postgres")
		return pg, pg.Close, nil
	case config.StoreSQLite:
		lite, err := sqlitestore.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		logger.WithField("path", cfg.SQLitePath).Info("repository: sqlite")
		return lite, lite.Close, nil
	default:
		logger.Warn("repository: in-memory, saved filters are lost on restart")
		return memory.New(), nil, nil
	}
}

// openCache prefers Redis so terminals behind several backend instances share
// snapshots. An unreachable Redis degrades to the process-local cache.
func openCache(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (cache.LedgerCache, func() error) {
	if cfg.LedgerCacheTTL() <= 0 {
		logger.Info("cache: disabled")
		return cache.NoopLedgerCache{}, nil
	}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisLedgerCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logging.Error(logger, "main", "openCache", "redis unavailable, using memory cache", cfg.RedisAddr, err)
			_ = redisCache.Close()
		} else {
			logger.Info("cache: redis")
			return redisCache, redisCache.Close
		}
	}
	logger.WithField("capacity", cfg.LedgerCacheCapacity).Info("cache: memory")
	return cache.NewMemoryLedgerCache(cfg.LedgerCacheCapacity), nil
}

func openPublisher(cfg config.Config, logger logrus.FieldLogger) (events.Publisher, error) {
	switch cfg.EventsDriver {
	case config.EventsKafka:
		logger.WithField("topic", cfg.KafkaTopic).Info("events: kafka")
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.EventsAMQP:
		logger.WithField("exchange", cfg.AMQPExchange).Info("events: amqp")
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		logger.Info("events: disabled")
		return events.NoopPublisher{}, nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.ManagerPIN) < 6 {
		return fmt.Errorf("MANAGER_PIN must be set and at least 6 digits")
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects PINs that are a single repeated digit, a run of
// consecutive digits or on the common-PIN list.
func validatePINStrength(pin string) error {
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return fmt.Errorf("PIN must contain digits only")
		}
	}
	common := map[string]bool{
		"121212": true, "112233": true, "123123": true, "159753": true,
		"147258": true, "102030": true, "696969": true, "131313": true,
	}
	if common[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	repeated, ascending, descending := true, true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		repeated = repeated && diff == 0
		ascending = ascending && diff == 1
		descending = descending && diff == -1
	}
	switch {
	case repeated:
		return fmt.Errorf("repeated-digit PIN not allowed")
	case ascending, descending:
		return fmt.Errorf("sequential PIN not allowed")
	}
	return nil
}
