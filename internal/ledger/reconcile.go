package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Reconciliation compares the materialized balance against the value
// recomputed from the full transaction history. Drift is reported, never
// silently corrected; a non-zero drift means an atomic unit was violated
// somewhere and deserves investigation, not patching.
type Reconciliation struct {
	MessID   string
	Balance  decimal.Decimal
	Income   decimal.Decimal
	Expense  decimal.Decimal
	Expected decimal.Decimal
	Drift    decimal.Decimal
}

// Consistent reports whether the materialized balance matches history.
func (r *Reconciliation) Consistent() bool {
	return r.Drift.IsZero()
}

// Reconcile recomputes one mess's balance from history.
func (e *Engine) Reconcile(ctx context.Context, messID string) (*Reconciliation, error) {
	m, err := e.store.GetMess(ctx, messID)
	if err != nil {
		return nil, err
	}
	income, expense, err := e.store.LedgerSums(ctx, messID)
	if err != nil {
		return nil, err
	}
	expected := income.Sub(expense)
	rec := &Reconciliation{
		MessID:   messID,
		Balance:  m.Balance,
		Income:   income,
		Expense:  expense,
		Expected: expected,
		Drift:    m.Balance.Sub(expected),
	}
	if !rec.Consistent() {
		e.log.WarnContext(ctx, "Balance drift detected",
			"mess_id", messID,
			"balance", rec.Balance.String(),
			"expected", rec.Expected.String(),
			"drift", rec.Drift.String())
	}
	return rec, nil
}

// ReconcileAll runs Reconcile over every mess and returns the reports of
// those with drift.
func (e *Engine) ReconcileAll(ctx context.Context) ([]*Reconciliation, error) {
	ids, err := e.store.ListMessIDs(ctx)
	if err != nil {
		return nil, err
	}
	var drifted []*Reconciliation
	for _, id := range ids {
		rec, err := e.Reconcile(ctx, id)
		if err != nil {
			return drifted, err
		}
		if !rec.Consistent() {
			drifted = append(drifted, rec)
		}
	}
	return drifted, nil
}
