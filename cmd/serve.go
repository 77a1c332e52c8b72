package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"checkngo/internal/config"
	"checkngo/internal/events"
	httpapi "checkngo/internal/http"
	"checkngo/internal/idempotency"
	"checkngo/internal/inventory"
	"checkngo/internal/logging"
	"checkngo/internal/metrics"
	"checkngo/internal/repository"
	"checkngo/internal/seed"
	"checkngo/internal/service"
)

func setup(c *cli.Context) (config.Config, *slog.Logger, error) {
	cfg := config.FromContext(c)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	log, err := logging.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	slog.SetDefault(log)
	return cfg, log, nil
}

// openCatalog подключает выбранное хранилище и готовит схему
func openCatalog(ctx context.Context, cfg config.Config) (repository.Catalog, error) {
	switch cfg.Store {
	case config.StoreSQLite, config.StorePostgres:
		st, err := repository.NewSQLStore(ctx, cfg.Store, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := st.RunMigrations(); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case config.StoreMongo:
		st, err := repository.ConnectMongo(ctx, cfg.DSN, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := st.CreateIndexes(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func loadDemo(ctx context.Context, catalog repository.Catalog, log *slog.Logger) error {
	data, err := seed.Demo()
	if err != nil {
		return err
	}
	n, err := seed.Load(ctx, catalog, data)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	log.Info("demo data loaded", "stores", len(data.Stores), "products", n)
	return nil
}

func migrateCmd(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	if cfg.Store == config.StoreMemory {
		return fmt.Errorf("%w: migrate needs a persistent --store", config.ErrInvalidConfig)
	}
	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	catalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()
	log.Info("schema is up to date", "store", cfg.Store)
	if cfg.Seed {
		return loadDemo(ctx, catalog, log)
	}
	return nil
}

func openIdempotency(ctx context.Context, cfg config.Config) (idempotency.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return idempotency.NewMemoryStore(cfg.IdempotencyTTL), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return idempotency.NewRedisStore(client, cfg.IdempotencyTTL), func() { client.Close() }, nil
}

func serve(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()
	if cfg.Seed {
		if err := loadDemo(ctx, catalog, log); err != nil {
			return err
		}
	}

	idem, closeIdem, err := openIdempotency(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIdem()

	var publisher service.BillPublisher = events.Noop{}
	if kc := events.NewClient(cfg.KafkaBrokers); kc.Enabled() {
		p := events.NewPublisher(kc, cfg.KafkaTopic)
		defer p.Close()
		publisher = p
		log.Info("bill events enabled", "brokers", kc.Brokers, "topic", cfg.KafkaTopic)
	}

	m := metrics.NewServerMetrics("api")
	stock := repository.NewBreaker(catalog, repository.BreakerSettings{
		ConsecutiveFailures: uint32(cfg.BreakerFailures),
		OpenTimeout:         cfg.BreakerTimeout,
	}, log)
	engine := inventory.NewEngine(stock, inventory.Options{
		ConflictRetries: cfg.ConflictRetries,
		CallTimeout:     cfg.StoreTimeout,
	}, log)
	checkout := service.NewCheckoutService(stock, catalog, engine, service.CheckoutOptions{Compensate: cfg.Compensate}, log).
		WithPublisher(publisher).
		WithObserver(m)

	srv := httpapi.NewServer(httpapi.Deps{
		Products:     service.NewProductService(catalog, catalog),
		Checkout:     checkout,
		Idempotency:  idem,
		Metrics:      m,
		BreakerState: stock.State,
		AdminToken:   cfg.AdminToken,
		Logger:       log,
	})
	if cfg.AdminToken == "" {
		log.Warn("admin token is not set, admin routes are open")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", httpServer.Addr, "store", cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
	return nil
}
