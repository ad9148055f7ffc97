package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/backend"
	"expenses/internal/cache"
	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/core"
	apphttp "expenses/internal/http"
	applog "expenses/internal/log"
	"expenses/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Store cleanup failed", applog.FieldError, err)
			}
		}()
	}
	store := result.Store

	if err := store.CreateOwner(ctx, cfg.DefaultOwner); err != nil {
		return fmt.Errorf("register default owner: %w", err)
	}

	// Change events are optional. A nil publisher disables them.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpLogger := logger.WithComponent(applog.ComponentAMQP)
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			amqpLogger.Warn("Failed to initialize AMQP client, continuing without change events", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			amqpLogger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	summaryCache := cache.NewLRUCache[[]core.CategoryTotal](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager()
	caches.Register("summary", summaryCache)
	caches.StartCleanup(cfg.SummaryCacheTTL)
	defer caches.Stop()

	summaries := services.NewSummaryService(store, summaryCache)
	expenses := services.NewExpenseService(store, summaries, publisher, core.SystemClock)
	budgets := services.NewBudgetService(store, summaries, core.SystemClock)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		DefaultOwner:       cfg.DefaultOwner,
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, apphttp.Deps{
		Expenses:  expenses,
		Summaries: summaries,
		Budgets:   budgets,
		Store:     store,
		Logger:    logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expenses server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
