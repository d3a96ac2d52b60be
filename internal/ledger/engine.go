// Package ledger keeps each mess's balance equal to total income minus
// total expense. Every mutation follows the same shape: validate, authorize
// against the policy table, compute the balance delta, then apply the
// transaction write and the delta as one atomic unit through the store.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"messbook/internal/core"
	"messbook/internal/events"
	applog "messbook/internal/log"
	"messbook/internal/storage"
)

// Publisher emits committed ledger mutations. A nil publisher disables
// eventing; publish failures are logged, never surfaced, because the
// ledger write has already committed.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, event *events.LedgerEvent) error
}

// Config tunes the engine.
type Config struct {
	// ExpenseRole is the standing required for expense operations.
	ExpenseRole Role
	// Retries bounds how often a conflicted atomic unit is retried before
	// the conflict is surfaced.
	Retries int
}

// Engine is the ledger coordinator and the sole writer of mess balances.
type Engine struct {
	store     storage.Store
	policy    Policy
	publisher Publisher
	retries   int
	log       *applog.Logger
}

// New creates an engine. publisher may be nil.
func New(store storage.Store, cfg Config, publisher Publisher) *Engine {
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	role := cfg.ExpenseRole
	if role == "" {
		role = RoleAdmin
	}
	return &Engine{
		store:     store,
		policy:    NewPolicy(role),
		publisher: publisher,
		retries:   retries,
		log:       applog.ForComponent(applog.ComponentLedger),
	}
}

// CreateIncome records money received into the mess. The actor must be the
// mess admin and the payer a current member.
func (e *Engine) CreateIncome(ctx context.Context, messID, actorID, payerID, description string, amount decimal.Decimal) (*core.IncomeTransaction, error) {
	t := &core.IncomeTransaction{
		MessID:      messID,
		PayerID:     payerID,
		Description: strings.TrimSpace(description),
		Amount:      amount,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	m, err := e.store.GetMess(ctx, messID)
	if err != nil {
		return nil, err
	}
	if err := e.policy.Authorize(m, actorID, OpCreateIncome); err != nil {
		return nil, err
	}
	if _, err := e.store.GetUser(ctx, payerID); err != nil {
		return nil, err
	}
	if !m.IsMember(payerID) {
		return nil, core.ErrNotAMember
	}

	if err := e.withRetry(ctx, func() error {
		return e.store.InsertIncome(ctx, t)
	}); err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "Income recorded",
		"mess_id", messID, "transaction_id", t.ID, "amount", t.Amount.String())
	e.publish(ctx, events.IncomeCreated, t.MessID, t.ID, actorID, t.Amount, t.Description)
	return t, nil
}

// UpdateIncome applies a partial update. Unset fields keep their prior
// values; a patch whose effective values all equal the current record is
// rejected with ErrNoChange. The balance movement is derived by the store
// from the amount it holds at commit time, not from the read above, so two
// racing updates settle on the last writer's amount without drifting the
// balance.
func (e *Engine) UpdateIncome(ctx context.Context, txnID, actorID string, patch IncomePatch) (*core.IncomeTransaction, error) {
	old, err := e.store.GetIncome(ctx, txnID)
	if err != nil {
		return nil, err
	}
	m, err := e.store.GetMess(ctx, old.MessID)
	if err != nil {
		return nil, err
	}
	if err := e.policy.Authorize(m, actorID, OpUpdateIncome); err != nil {
		return nil, err
	}

	next := *old
	if patch.PayerID != nil {
		next.PayerID = *patch.PayerID
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Amount != nil {
		next.Amount = *patch.Amount
	}
	if next.PayerID == old.PayerID && next.Description == old.Description && next.Amount.Equal(old.Amount) {
		return nil, core.ErrNoChange
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if patch.PayerID != nil && !m.IsMember(next.PayerID) {
		return nil, core.ErrNotAMember
	}

	if err := e.withRetry(ctx, func() error {
		return e.store.UpdateIncome(ctx, &next)
	}); err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "Income updated",
		"mess_id", next.MessID, "transaction_id", next.ID, "amount", next.Amount.String())
	e.publish(ctx, events.IncomeUpdated, next.MessID, next.ID, actorID, next.Amount, next.Description)
	return &next, nil
}

// DeleteIncome removes the record and reverses its balance contribution.
func (e *Engine) DeleteIncome(ctx context.Context, txnID, actorID string) error {
	t, err := e.store.GetIncome(ctx, txnID)
	if err != nil {
		return err
	}
	m, err := e.store.GetMess(ctx, t.MessID)
	if err != nil {
		return err
	}
	if err := e.policy.Authorize(m, actorID, OpDeleteIncome); err != nil {
		return err
	}

	if err := e.withRetry(ctx, func() error {
		return e.store.DeleteIncome(ctx, txnID)
	}); err != nil {
		return err
	}

	e.log.InfoContext(ctx, "Income deleted",
		"mess_id", t.MessID, "transaction_id", txnID, "amount", t.Amount.String())
	e.publish(ctx, events.IncomeDeleted, t.MessID, txnID, actorID, t.Amount, t.Description)
	return nil
}

// CreateExpense records money spent out of the mess. The required standing
// comes from the policy table (admin by default, member if configured).
func (e *Engine) CreateExpense(ctx context.Context, messID, actorID, reason, description string, amount decimal.Decimal) (*core.ExpenseTransaction, error) {
	t := &core.ExpenseTransaction{
		MessID:      messID,
		Reason:      strings.TrimSpace(reason),
		Description: strings.TrimSpace(description),
		Amount:      amount,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	m, err := e.store.GetMess(ctx, messID)
	if err != nil {
		return nil, err
	}
	if err := e.policy.Authorize(m, actorID, OpCreateExpense); err != nil {
		return nil, err
	}

	if err := e.withRetry(ctx, func() error {
		return e.store.InsertExpense(ctx, t)
	}); err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "Expense recorded",
		"mess_id", messID, "transaction_id", t.ID, "amount", t.Amount.String())
	e.publish(ctx, events.ExpenseCreated, t.MessID, t.ID, actorID, t.Amount, t.Description)
	return t, nil
}

// UpdateExpense mirrors UpdateIncome with the balance sign inverted.
func (e *Engine) UpdateExpense(ctx context.Context, txnID, actorID string, patch ExpensePatch) (*core.ExpenseTransaction, error) {
	old, err := e.store.GetExpense(ctx, txnID)
	if err != nil {
		return nil, err
	}
	m, err := e.store.GetMess(ctx, old.MessID)
	if err != nil {
		return nil, err
	}
	if err := e.policy.Authorize(m, actorID, OpUpdateExpense); err != nil {
		return nil, err
	}

	next := *old
	if patch.Reason != nil {
		next.Reason = strings.TrimSpace(*patch.Reason)
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Amount != nil {
		next.Amount = *patch.Amount
	}
	if next.Reason == old.Reason && next.Description == old.Description && next.Amount.Equal(old.Amount) {
		return nil, core.ErrNoChange
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	if err := e.withRetry(ctx, func() error {
		return e.store.UpdateExpense(ctx, &next)
	}); err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "Expense updated",
		"mess_id", next.MessID, "transaction_id", next.ID, "amount", next.Amount.String())
	e.publish(ctx, events.ExpenseUpdated, next.MessID, next.ID, actorID, next.Amount, next.Description)
	return &next, nil
}

// DeleteExpense removes the record and returns its amount to the balance.
func (e *Engine) DeleteExpense(ctx context.Context, txnID, actorID string) error {
	t, err := e.store.GetExpense(ctx, txnID)
	if err != nil {
		return err
	}
	m, err := e.store.GetMess(ctx, t.MessID)
	if err != nil {
		return err
	}
	if err := e.policy.Authorize(m, actorID, OpDeleteExpense); err != nil {
		return err
	}

	if err := e.withRetry(ctx, func() error {
		return e.store.DeleteExpense(ctx, txnID)
	}); err != nil {
		return err
	}

	e.log.InfoContext(ctx, "Expense deleted",
		"mess_id", t.MessID, "transaction_id", txnID, "amount", t.Amount.String())
	e.publish(ctx, events.ExpenseDeleted, t.MessID, txnID, actorID, t.Amount, t.Description)
	return nil
}

// withRetry re-runs a conflicted atomic unit a bounded number of times
// before letting the conflict surface.
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if !errors.Is(err, core.ErrConflict) || attempt >= e.retries {
			return err
		}
		e.log.WarnContext(ctx, "Ledger write conflicted, retrying", "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
}

func (e *Engine) publish(ctx context.Context, kind events.Kind, messID, txnID, actorID string, amount decimal.Decimal, description string) {
	if e.publisher == nil {
		return
	}
	event := events.NewLedgerEvent(kind, messID, txnID, actorID, amount.String(), description)
	if err := e.publisher.PublishLedgerEvent(ctx, event); err != nil {
		e.log.ErrorContext(ctx, "Failed to publish ledger event",
			"error", err, "kind", kind, "transaction_id", txnID)
	}
}
