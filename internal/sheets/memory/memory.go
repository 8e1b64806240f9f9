package memory

import (
	"context"
	"fmt"
	"sync"

	"tripledger/internal/sheets"
)

// Exporter keeps exported reports in memory. It backs local runs without a
// spreadsheet and the worker tests.
type Exporter struct {
	mu      sync.Mutex
	reports map[string]sheets.TripReport
	exports int
	fail    error
}

var _ sheets.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{reports: make(map[string]sheets.TripReport)}
}

// ExportTrip stores r, replacing any earlier report of the same trip, and
// returns a synthetic reference.
func (e *Exporter) ExportTrip(_ context.Context, r sheets.TripReport) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		err := e.fail
		e.fail = nil
		return "", err
	}
	e.reports[r.Settings.TripID] = r
	e.exports++
	return fmt.Sprintf("mem:%s:%d", r.Settings.TripID, e.exports), nil
}

// FailNext makes the next export return err.
func (e *Exporter) FailNext(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

// Report returns the last report exported for tripID.
func (e *Exporter) Report(tripID string) (sheets.TripReport, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.reports[tripID]
	return r, ok
}

// Exports returns the number of successful exports.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
