package main

import (
	"context"
	"fmt"
	"os"

	"expenses/internal/amqp"
	"expenses/internal/backend"
	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig((*config.Config).ValidateWorker)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if err := run(cfg, logger); err != nil {
		logger.Error("Budget watcher exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Budget watcher stopped")
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
		defer result.Cleanup()
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	// Writes happen in the API process, so a local summary cache would go stale.
	summaries := services.NewSummaryService(result.Store, nil)
	budgets := services.NewBudgetService(result.Store, summaries, core.SystemClock)

	return worker.NewBudgetWatcher(budgets, logger).Run(ctx, client)
}
