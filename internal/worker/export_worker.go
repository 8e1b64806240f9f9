// Package worker keeps spreadsheet reports in step with the ledger.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tripledger/internal/amqp"
	"tripledger/internal/core"
	"tripledger/internal/log"
	"tripledger/internal/sheets"
	"tripledger/internal/storage"
)

// ExportWorker rebuilds and exports a trip's report whenever the trip changes.
type ExportWorker struct {
	store    storage.Store
	exporter sheets.ReportExporter
	logger   *log.Logger
	now      func() time.Time

	mu         sync.Mutex
	snapshotAt map[string]time.Time
}

func NewExportWorker(store storage.Store, exporter sheets.ReportExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		store:      store,
		exporter:   exporter,
		logger:     logger.WithComponent(log.ComponentWorker),
		now:        time.Now,
		snapshotAt: make(map[string]time.Time),
	}
}

// HandleLedgerChange processes a single change message from AMQP. Messages
// older than the last exported snapshot of their trip are already reflected
// and are skipped.
func (w *ExportWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldTripID, msg.TripID,
		log.FieldEntity, msg.Entity,
		log.FieldOperation, msg.Operation,
		"entity_id", msg.EntityID)

	w.mu.Lock()
	last, seen := w.snapshotAt[msg.TripID]
	w.mu.Unlock()
	if seen && msg.Timestamp.Before(last) {
		w.logger.DebugContext(ctx, "Change already exported, skipping",
			log.FieldTripID, msg.TripID,
			"snapshot_at", last.Format(time.RFC3339Nano))
		return nil
	}

	if err := w.ExportTrip(ctx, msg.TripID); err != nil {
		return fmt.Errorf("export trip %s: %w", msg.TripID, err)
	}
	return nil
}

// ExportTrip reads one snapshot of tripID and exports it. A trip that no
// longer exists is skipped.
func (w *ExportWorker) ExportTrip(ctx context.Context, tripID string) error {
	startedAt := w.now()

	settings, err := w.store.GetSettings(ctx, tripID)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	if settings == nil {
		w.logger.WarnContext(ctx, "Trip not found, nothing to export", log.FieldTripID, tripID)
		return nil
	}
	instruments, err := w.store.ListInstruments(ctx, tripID)
	if err != nil {
		return fmt.Errorf("list instruments: %w", err)
	}
	items, err := w.store.ListItems(ctx, tripID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	report := sheets.NewTripReport(*settings, instruments, items, startedAt)
	ref, err := w.exporter.ExportTrip(ctx, report)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to export trip report", log.NewFields().
			WithTrip(tripID).
			WithError(err).
			WithOperation(log.OpExport).ToSlice()...)
		return err
	}

	w.mu.Lock()
	if startedAt.After(w.snapshotAt[tripID]) {
		w.snapshotAt[tripID] = startedAt
	}
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Successfully exported trip",
		log.FieldTripID, tripID,
		"sheets_ref", ref,
		"items", len(items),
		"total", report.Summary.Total.String()+" "+report.Summary.HomeCurrency)
	return nil
}

// ExportAll exports every known trip. It is the backup path for lost
// messages and runs at startup and periodically. Failures of single trips
// are counted and logged; the first one is returned.
func (w *ExportWorker) ExportAll(ctx context.Context) error {
	trips, err := w.store.ListTrips(ctx)
	if err != nil {
		return fmt.Errorf("list trips: %w", err)
	}
	if len(trips) == 0 {
		w.logger.InfoContext(ctx, "No trips to export")
		return nil
	}

	w.logger.DebugContext(ctx, "Exporting trips", "trips", tripIDs(trips))

	var firstErr error
	exported, failed := 0, 0
	for _, t := range trips {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.ExportTrip(ctx, t.TripID); err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("export trip %s: %w", t.TripID, err)
			}
			continue
		}
		exported++
	}

	w.logger.InfoContext(ctx, "Full export completed",
		"total", len(trips),
		"exported", exported,
		"errors", failed)
	return firstErr
}

// tripIDs lists trip ids of settings, for logging.
func tripIDs(list []core.TripSettings) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.TripID
	}
	return out
}

// RunPeriodic calls ExportAll every interval until ctx is done.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Periodic export stopped")
			return
		case <-ticker.C:
			if err := w.ExportAll(ctx); err != nil {
				w.logger.WarnContext(ctx, "Periodic export incomplete", log.FieldError, err)
			}
		}
	}
}
