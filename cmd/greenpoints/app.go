package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/nkiryanov/greenpoints/internal/cache"
	"github.com/nkiryanov/greenpoints/internal/db"
	"github.com/nkiryanov/greenpoints/internal/events"
	"github.com/nkiryanov/greenpoints/internal/handlers"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/metrics"
	"github.com/nkiryanov/greenpoints/internal/repository/postgres"
	"github.com/nkiryanov/greenpoints/internal/service/account"
	"github.com/nkiryanov/greenpoints/internal/service/auth"
	"github.com/nkiryanov/greenpoints/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/greenpoints/internal/service/catalog"
	"github.com/nkiryanov/greenpoints/internal/service/ledger"
	"github.com/nkiryanov/greenpoints/internal/service/recycling"
	"github.com/nkiryanov/greenpoints/internal/service/redemption"
	"github.com/nkiryanov/greenpoints/internal/service/submissions"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	// Nil if submissions intake is disabled
	Submissions *submissions.Processor

	logger  logger.Logger
	closers []func() error
}

func NewServerApp(ctx context.Context, c *Config) (_ *ServerApp, err error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, logger: l}

	// Release what was opened if a later step fails
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	// Connect to the database and run migrations
	version, err := db.Migrate(c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	l.Info("Database schema is up to date", "version", version)

	pool, err := db.Connect(ctx, c.DatabaseDSN, db.WithMaxConns(c.DatabaseMaxConns))
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	app.onClose(func() error { pool.Close(); return nil })

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		poolCollector(pool),
	)

	storage := postgres.NewStorage(pool, postgres.WithTxTimeout(c.TxTimeout))
	hookOpts := []ledger.Option{ledger.WithMetrics(metrics.NewLedgerMetrics(reg))}

	// Interfaces get only configured clients, never a typed nil
	var accountService *account.AccountService
	if c.RedisURL != "" {
		balanceCache, err := cache.Connect(ctx, c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		app.onClose(balanceCache.Close)

		hookOpts = append(hookOpts, ledger.WithCache(balanceCache))
		accountService = account.NewService(storage.Account(), balanceCache, l)
		l.Info("Balance cache enabled")
	} else {
		accountService = account.NewService(storage.Account(), nil, l)
	}

	if c.RabbitMQURL != "" {
		publisher, err := events.NewRabbitPublisher(c.RabbitMQURL, c.RabbitMQQueue)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to rabbitmq. Err: %w", err)
		}
		app.onClose(publisher.Close)

		hookOpts = append(hookOpts, ledger.WithPublisher(publisher))
		l.Info("Ledger events enabled", "queue", c.RabbitMQQueue)
	}

	hooks := ledger.NewHooks(l, hookOpts...)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	recyclingService := recycling.NewService(storage, hooks)

	app.Handler = handlers.NewRouter(
		handlers.Services{
			Auth:       auth.NewService(tokenManager),
			Account:    accountService,
			Recycling:  recyclingService,
			Catalog:    catalog.NewService(storage.Reward(), l),
			Redemption: redemption.NewService(storage, hooks),
			Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		},
		l,
		metrics.NewHTTPMetrics(reg).Middleware(),
	)

	if len(c.KafkaBrokers) > 0 {
		// Closed after Run returned, so the processor has stopped fetching
		reader := submissions.NewKafkaReader(c.KafkaBrokers, c.KafkaTopic)
		app.onClose(reader.Close)

		app.Submissions = submissions.New(
			submissions.Config{CountWorkers: c.SubmissionWorkers},
			reader,
			recyclingService,
			l,
		)
		l.Info("Submissions intake enabled", "topic", c.KafkaTopic, "workers", c.SubmissionWorkers)
	}

	return app, nil
}

// Run starts http server and submissions intake, closes gracefully on context cancellation
// Returns nil on graceful stop
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Listen and serve until context is cancelled
	g.Go(func() error {
		s.logger.Info("Starting server", "address", s.ListenAddr)
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server error: %w", err)
	})

	// Close connections gracefully when any part stops or context is cancelled
	g.Go(func() error {
		<-gCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(timeoutCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
			_ = httpServer.Close()
		}
		s.logger.Info("HTTP server stopped")
		return nil
	})

	if s.Submissions != nil {
		g.Go(func() error {
			<-s.Submissions.Process(gCtx)
			return nil
		})
	}

	return g.Wait()
}

// Close releases connections in reverse order of opening
func (s *ServerApp) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil

	return errors.Join(errs...)
}

func (s *ServerApp) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func poolCollector(pool *pgxpool.Pool) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "db_pool_acquired_connections",
		Help: "Connections currently acquired from the pool.",
	}, func() float64 {
		return float64(pool.Stat().AcquiredConns())
	})
}
