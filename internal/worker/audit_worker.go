// Package worker runs the background side of the ledger: an audit trail fed
// by AMQP events and a periodic balance reconciliation sweep.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"messbook/internal/events"
	"messbook/internal/ledger"
	applog "messbook/internal/log"
	"messbook/internal/sheets"
)

// AuditWorker consumes committed ledger events and appends them to the
// audit trail, and periodically recomputes every mess balance from history.
type AuditWorker struct {
	events            *events.Client
	audit             sheets.AuditWriter
	engine            *ledger.Engine
	reconcileInterval time.Duration
	log               *applog.Logger
}

func NewAuditWorker(eventsClient *events.Client, audit sheets.AuditWriter, engine *ledger.Engine, reconcileInterval time.Duration) *AuditWorker {
	return &AuditWorker{
		events:            eventsClient,
		audit:             audit,
		engine:            engine,
		reconcileInterval: reconcileInterval,
		log:               applog.ForComponent(applog.ComponentWorker),
	}
}

// Run blocks until ctx is cancelled or a loop fails.
func (w *AuditWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.consumeLoop(ctx)
	})
	g.Go(func() error {
		return w.reconcileLoop(ctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (w *AuditWorker) consumeLoop(ctx context.Context) error {
	if w.events == nil {
		w.log.InfoContext(ctx, "No event broker configured, audit consumption disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	return w.events.ConsumeLedgerEvents(ctx, func(event *events.LedgerEvent) error {
		return w.HandleLedgerEvent(ctx, event)
	})
}

// HandleLedgerEvent appends one event to the audit trail. Errors propagate
// so the delivery is requeued.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, event *events.LedgerEvent) error {
	ref, err := w.audit.Append(ctx, event)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	w.log.InfoContext(ctx, "Audit entry recorded",
		"kind", event.Kind,
		"mess_id", event.MessID,
		"transaction_id", event.TransactionID,
		"audit_ref", ref)
	return nil
}

func (w *AuditWorker) reconcileLoop(ctx context.Context) error {
	if w.reconcileInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(w.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *AuditWorker) sweep(ctx context.Context) {
	drifted, err := w.engine.ReconcileAll(ctx)
	if err != nil {
		w.log.ErrorContext(ctx, "Reconciliation sweep failed", "error", err)
		return
	}
	if len(drifted) == 0 {
		w.log.DebugContext(ctx, "Reconciliation sweep clean")
		return
	}
	for _, rec := range drifted {
		w.log.WarnContext(ctx, "Reconciliation sweep found drift",
			"mess_id", rec.MessID,
			"balance", rec.Balance.String(),
			"expected", rec.Expected.String(),
			"drift", rec.Drift.String())
	}
}
