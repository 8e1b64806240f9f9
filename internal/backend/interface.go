package backend

import (
	"context"

	"tripledger/internal/amqp"
	"tripledger/internal/sheets"
	"tripledger/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the wired infrastructure and a cleanup that releases it.
type Result struct {
	Store storage.Store
	// AMQP is nil when the broker is disabled or unreachable.
	AMQP *amqp.Client
	// Exporter is nil unless requested with WithExporter.
	Exporter sheets.ReportExporter
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export, optional
	WithExporter        bool
	GoogleSpreadsheetID string
	GoogleSheetPrefix   string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
