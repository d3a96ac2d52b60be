package sheets

import (
	"context"

	"messbook/internal/events"
)

// Ports for outbound audit adapters.
type (
	// AuditWriter appends a ledger event to the audit trail.
	AuditWriter interface {
		Append(ctx context.Context, event *events.LedgerEvent) (rowRef string, err error)
	}
)
