package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"messbook/internal/core"
)

// applyBalanceDelta re-reads the balance inside the enclosing transaction,
// adds the delta and writes it back. Together with the row write this forms
// the atomic unit the ledger depends on.
func applyBalanceDelta(ctx context.Context, tx *sql.Tx, messID string, delta decimal.Decimal) error {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT balance FROM messes WHERE id = ?", messID).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("mess %s: %w", messID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse balance %q: %w", raw, err)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE messes SET balance = ?, updated_at = ? WHERE id = ?",
		balance.Add(delta).String(), nanos(time.Now().UTC()), messID,
	)
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

// InsertIncome inserts the record and adds its amount to the mess balance.
func (r *Repository) InsertIncome(ctx context.Context, t *core.IncomeTransaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO income_transactions (id, mess_id, payer_id, description, amount, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			t.ID, t.MessID, t.PayerID, t.Description, t.Amount.String(), nanos(t.CreatedAt), nanos(t.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert income: %w", err)
		}
		return applyBalanceDelta(ctx, tx, t.MessID, t.Amount)
	})
}

// UpdateIncome rewrites the record and moves the balance by the difference
// between the new amount and the one read inside the same transaction.
func (r *Repository) UpdateIncome(ctx context.Context, t *core.IncomeTransaction) error {
	t.UpdatedAt = time.Now().UTC()

	return r.withTx(ctx, func(tx *sql.Tx) error {
		var messID, stored string
		err := tx.QueryRowContext(ctx,
			"SELECT mess_id, amount FROM income_transactions WHERE id = ?", t.ID,
		).Scan(&messID, &stored)
		if err == sql.ErrNoRows {
			return fmt.Errorf("income %s: %w", t.ID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get income: %w", err)
		}
		prior, err := decimal.NewFromString(stored)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", stored, err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE income_transactions SET payer_id = ?, description = ?, amount = ?, updated_at = ? WHERE id = ?",
			t.PayerID, t.Description, t.Amount.String(), nanos(t.UpdatedAt), t.ID,
		); err != nil {
			return fmt.Errorf("update income: %w", err)
		}
		delta := t.Amount.Sub(prior)
		if delta.IsZero() {
			return nil
		}
		return applyBalanceDelta(ctx, tx, messID, delta)
	})
}

// DeleteIncome removes the record and subtracts its amount from the balance.
func (r *Repository) DeleteIncome(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var messID, amount string
		err := tx.QueryRowContext(ctx,
			"SELECT mess_id, amount FROM income_transactions WHERE id = ?", id,
		).Scan(&messID, &amount)
		if err == sql.ErrNoRows {
			return fmt.Errorf("income %s: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get income: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", amount, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM income_transactions WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete income: %w", err)
		}
		return applyBalanceDelta(ctx, tx, messID, d.Neg())
	})
}

// GetIncome retrieves one income record.
func (r *Repository) GetIncome(ctx context.Context, id string) (*core.IncomeTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, mess_id, payer_id, description, amount, created_at, updated_at FROM income_transactions WHERE id = ?",
		id,
	)
	t, err := scanIncome(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("income %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

// ListIncome returns a page of income records, newest first.
func (r *Repository) ListIncome(ctx context.Context, messID string, limit, offset int) ([]core.IncomeTransaction, error) {
	return r.listIncome(ctx,
		"SELECT id, mess_id, payer_id, description, amount, created_at, updated_at FROM income_transactions WHERE mess_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		messID, limit, offset)
}

// ListIncomeByPayer returns a page of one member's income records, newest first.
func (r *Repository) ListIncomeByPayer(ctx context.Context, messID, payerID string, limit, offset int) ([]core.IncomeTransaction, error) {
	return r.listIncome(ctx,
		"SELECT id, mess_id, payer_id, description, amount, created_at, updated_at FROM income_transactions WHERE mess_id = ? AND payer_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		messID, payerID, limit, offset)
}

func (r *Repository) listIncome(ctx context.Context, query string, args ...any) ([]core.IncomeTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(fmt.Errorf("list income: %w", err))
	}
	defer rows.Close()

	var out []core.IncomeTransaction
	for rows.Next() {
		t, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("iterate income: %w", err))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncome(s scanner) (*core.IncomeTransaction, error) {
	t := &core.IncomeTransaction{}
	var amount string
	var created, updated int64
	if err := s.Scan(&t.ID, &t.MessID, &t.PayerID, &t.Description, &amount, &created, &updated); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Amount = d
	t.CreatedAt = fromNanos(created)
	t.UpdatedAt = fromNanos(updated)
	return t, nil
}

// InsertExpense inserts the record and subtracts its amount from the balance.
func (r *Repository) InsertExpense(ctx context.Context, t *core.ExpenseTransaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_transactions (id, mess_id, reason, description, amount, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			t.ID, t.MessID, t.Reason, t.Description, t.Amount.String(), nanos(t.CreatedAt), nanos(t.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		return applyBalanceDelta(ctx, tx, t.MessID, t.Amount.Neg())
	})
}

// UpdateExpense rewrites the record and moves the balance by the stored
// amount minus the new one, with the stored amount read in the same
// transaction.
func (r *Repository) UpdateExpense(ctx context.Context, t *core.ExpenseTransaction) error {
	t.UpdatedAt = time.Now().UTC()

	return r.withTx(ctx, func(tx *sql.Tx) error {
		var messID, stored string
		err := tx.QueryRowContext(ctx,
			"SELECT mess_id, amount FROM expense_transactions WHERE id = ?", t.ID,
		).Scan(&messID, &stored)
		if err == sql.ErrNoRows {
			return fmt.Errorf("expense %s: %w", t.ID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get expense: %w", err)
		}
		prior, err := decimal.NewFromString(stored)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", stored, err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE expense_transactions SET reason = ?, description = ?, amount = ?, updated_at = ? WHERE id = ?",
			t.Reason, t.Description, t.Amount.String(), nanos(t.UpdatedAt), t.ID,
		); err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		delta := prior.Sub(t.Amount)
		if delta.IsZero() {
			return nil
		}
		return applyBalanceDelta(ctx, tx, messID, delta)
	})
}

// DeleteExpense removes the record and adds its amount back to the balance.
func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var messID, amount string
		err := tx.QueryRowContext(ctx,
			"SELECT mess_id, amount FROM expense_transactions WHERE id = ?", id,
		).Scan(&messID, &amount)
		if err == sql.ErrNoRows {
			return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get expense: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", amount, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_transactions WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		return applyBalanceDelta(ctx, tx, messID, d)
	})
}

// GetExpense retrieves one expense record.
func (r *Repository) GetExpense(ctx context.Context, id string) (*core.ExpenseTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, mess_id, reason, description, amount, created_at, updated_at FROM expense_transactions WHERE id = ?",
		id,
	)
	t, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

// ListExpense returns a page of expense records, newest first.
func (r *Repository) ListExpense(ctx context.Context, messID string, limit, offset int) ([]core.ExpenseTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, mess_id, reason, description, amount, created_at, updated_at FROM expense_transactions WHERE mess_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		messID, limit, offset,
	)
	if err != nil {
		return nil, mapErr(fmt.Errorf("list expense: %w", err))
	}
	defer rows.Close()

	var out []core.ExpenseTransaction
	for rows.Next() {
		t, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("iterate expense: %w", err))
	}
	return out, nil
}

func scanExpense(s scanner) (*core.ExpenseTransaction, error) {
	t := &core.ExpenseTransaction{}
	var amount string
	var created, updated int64
	if err := s.Scan(&t.ID, &t.MessID, &t.Reason, &t.Description, &amount, &created, &updated); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Amount = d
	t.CreatedAt = fromNanos(created)
	t.UpdatedAt = fromNanos(updated)
	return t, nil
}

// CountTransactions returns the number of ledger records owned by a mess.
func (r *Repository) CountTransactions(ctx context.Context, messID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM income_transactions WHERE mess_id = ?) + (SELECT COUNT(*) FROM expense_transactions WHERE mess_id = ?)",
		messID, messID,
	).Scan(&n)
	if err != nil {
		return 0, mapErr(fmt.Errorf("count transactions: %w", err))
	}
	return n, nil
}

// LedgerSums recomputes income and expense totals from the full history.
// Sums are accumulated in Go because amounts are stored as decimal text.
func (r *Repository) LedgerSums(ctx context.Context, messID string) (decimal.Decimal, decimal.Decimal, error) {
	income, err := r.sumAmounts(ctx, "SELECT amount FROM income_transactions WHERE mess_id = ?", messID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	expense, err := r.sumAmounts(ctx, "SELECT amount FROM expense_transactions WHERE mess_id = ?", messID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return income, expense, nil
}

func (r *Repository) sumAmounts(ctx context.Context, query, messID string) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, query, messID)
	if err != nil {
		return decimal.Zero, mapErr(fmt.Errorf("sum amounts: %w", err))
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
		}
		sum = sum.Add(d)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, mapErr(fmt.Errorf("iterate amounts: %w", err))
	}
	return sum, nil
}
