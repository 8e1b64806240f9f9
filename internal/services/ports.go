package services

import (
	"context"

	"tripledger/internal/amqp"
)

// Publisher announces ledger changes to other processes.
type Publisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
}
