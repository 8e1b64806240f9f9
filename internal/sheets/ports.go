package sheets

import "context"

// Ports for outbound adapters.
type (
	// ReportExporter writes a full trip report, replacing any earlier export
	// of the same trip. It returns a reference to the written location.
	ReportExporter interface {
		ExportTrip(ctx context.Context, r TripReport) (ref string, err error)
	}
)
