// Package storage provides abstractions for persistent ledger data.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"messbook/internal/core"
)

// Store is the persistence contract consumed by the directory, the ledger
// engine and the query service. Two implementations exist: sqlite (SQL
// transactions make each transaction-write + balance-delta pair atomic) and
// memory (a per-mess lock admits one mutation at a time).
//
// Every method that pairs a transaction write with a balance delta commits
// both or neither; a mutation on one mess never blocks mutations on another.
type Store interface {
	// Users.
	CreateUser(ctx context.Context, u *core.User) error
	GetUser(ctx context.Context, id string) (*core.User, error)

	// Messes.
	CreateMess(ctx context.Context, m *core.Mess) error
	GetMess(ctx context.Context, id string) (*core.Mess, error)
	// MessExists reports whether an admin already owns a mess with this name.
	MessExists(ctx context.Context, name, adminID string) (bool, error)
	// UpdateMessInfo applies the non-nil fields only.
	UpdateMessInfo(ctx context.Context, id string, name, description, logoRef *string) (*core.Mess, error)
	// DeleteMess removes the mess. With cascade the mess and all of its
	// transactions go in one atomic unit; without it the caller must have
	// verified the ledger is empty.
	DeleteMess(ctx context.Context, id string, cascade bool) error
	ListMessIDs(ctx context.Context) ([]string, error)

	// Membership and menu. Each call is atomic on its mess.
	AddMember(ctx context.Context, messID, userID string) error
	RemoveMember(ctx context.Context, messID, userID string) error
	SetAdmin(ctx context.Context, messID, userID string) error
	AddMenuItem(ctx context.Context, messID, item string) error
	RemoveMenuItem(ctx context.Context, messID, item string) error

	// Income. Insert adds amount to the mess balance, Delete subtracts the
	// stored amount, Update moves the balance by the new amount minus the
	// stored one; the stored amount is read inside the same unit as the row
	// write, so concurrent updates cannot strand the balance.
	InsertIncome(ctx context.Context, t *core.IncomeTransaction) error
	UpdateIncome(ctx context.Context, t *core.IncomeTransaction) error
	DeleteIncome(ctx context.Context, id string) error
	GetIncome(ctx context.Context, id string) (*core.IncomeTransaction, error)
	ListIncome(ctx context.Context, messID string, limit, offset int) ([]core.IncomeTransaction, error)
	ListIncomeByPayer(ctx context.Context, messID, payerID string, limit, offset int) ([]core.IncomeTransaction, error)

	// Expense. Signs are inverted with respect to income.
	InsertExpense(ctx context.Context, t *core.ExpenseTransaction) error
	UpdateExpense(ctx context.Context, t *core.ExpenseTransaction) error
	DeleteExpense(ctx context.Context, id string) error
	GetExpense(ctx context.Context, id string) (*core.ExpenseTransaction, error)
	ListExpense(ctx context.Context, messID string, limit, offset int) ([]core.ExpenseTransaction, error)

	// CountTransactions returns the number of ledger records owned by a mess.
	CountTransactions(ctx context.Context, messID string) (int64, error)
	// LedgerSums recomputes the ground truth from history for reconciliation.
	LedgerSums(ctx context.Context, messID string) (income, expense decimal.Decimal, err error)

	Close() error
}
