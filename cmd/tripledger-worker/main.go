package main

import (
	"context"
	"errors"
	"time"

	"tripledger/internal/cli"
	"tripledger/internal/log"
	"tripledger/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting tripledger-worker")

	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := cli.InitBackend(parent, logger, cfg, true)
	defer cli.CloseBackend(logger, res)

	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - exporting to memory only")
	}

	ctx, done := cli.GracefulShutdown(parent, logger, 10*time.Second, nil)

	exporter := worker.NewExportWorker(res.Store, res.Exporter, logger)

	// On startup, export every trip in case change messages were missed
	if err := exporter.ExportAll(ctx); err != nil {
		logger.Error("Startup export incomplete", log.FieldError, err)
	}

	if res.AMQP != nil {
		go func() {
			if err := res.AMQP.ConsumeLedgerChanges(ctx, exporter.HandleLedgerChange); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", log.FieldError, err)
				}
				cancel()
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - broker disabled or unreachable")
	}

	go exporter.RunPeriodic(ctx, cfg.ExportInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("tripledger-worker stopped")
}
