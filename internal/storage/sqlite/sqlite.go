// Package sqlite provides the SQLite-backed implementation of storage.Store.
//
// Atomicity: every transaction-write + balance-delta pair runs inside a
// single SQL transaction, so the pair commits or fails as one unit. SQLite
// serializes writers; a busy database surfaces as core.ErrConflict and the
// ledger engine retries.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sqlite3 "modernc.org/sqlite"

	"messbook/internal/core"
	"messbook/internal/storage"
)

// Ensure Repository implements storage.Store
var _ storage.Store = (*Repository)(nil)

// Repository implements storage.Store using SQLite.
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SQLite primary result codes this package cares about.
const (
	codeBusy       = 5
	codeLocked     = 6
	codeConstraint = 19
)

// mapErr classifies driver failures into the core taxonomy. Busy and locked
// databases become ErrConflict so the engine can retry the whole unit.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case codeBusy, codeLocked:
			return fmt.Errorf("%w: %v", core.ErrConflict, err)
		}
	}
	return err
}

func isConstraint(err error) bool {
	var se *sqlite3.Error
	return errors.As(err, &se) && se.Code()%256 == codeConstraint
}

// withTx runs fn inside a transaction and maps driver errors on the way out.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func nanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// CreateUser persists a new identity record.
func (r *Repository) CreateUser(ctx context.Context, u *core.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, display_name, email, avatar_ref, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.DisplayName, u.Email, u.AvatarRef, nanos(u.CreatedAt),
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("user %s: %w", u.ID, core.ErrInvalidState)
		}
		return mapErr(fmt.Errorf("insert user: %w", err))
	}
	return nil
}

// GetUser retrieves an identity record by id.
func (r *Repository) GetUser(ctx context.Context, id string) (*core.User, error) {
	u := &core.User{}
	var created int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id, display_name, email, avatar_ref, created_at FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.DisplayName, &u.Email, &u.AvatarRef, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, mapErr(fmt.Errorf("get user: %w", err))
	}
	u.CreatedAt = fromNanos(created)
	return u, nil
}

// CreateMess persists a new mess together with its initial member rows.
func (r *Repository) CreateMess(ctx context.Context, m *core.Mess) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = m.CreatedAt

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO messes (id, name, description, logo_ref, admin_id, balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			m.ID, m.Name, m.Description, m.LogoRef, m.AdminID, m.Balance.String(), nanos(m.CreatedAt), nanos(m.UpdatedAt),
		)
		if err != nil {
			if isConstraint(err) {
				return core.ErrDuplicateMess
			}
			return fmt.Errorf("insert mess: %w", err)
		}
		for _, userID := range m.Members {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO mess_members (mess_id, user_id, joined_at) VALUES (?, ?, ?)",
				m.ID, userID, nanos(now),
			)
			if err != nil {
				return fmt.Errorf("insert member: %w", err)
			}
		}
		for i, item := range m.Menu {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO mess_menu (mess_id, position, item) VALUES (?, ?, ?)",
				m.ID, i, item,
			)
			if err != nil {
				return fmt.Errorf("insert menu item: %w", err)
			}
		}
		return nil
	})
}

// GetMess retrieves a mess with its member set and menu.
func (r *Repository) GetMess(ctx context.Context, id string) (*core.Mess, error) {
	m := &core.Mess{}
	var balance string
	var created, updated int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, logo_ref, admin_id, balance, created_at, updated_at FROM messes WHERE id = ?",
		id,
	).Scan(&m.ID, &m.Name, &m.Description, &m.LogoRef, &m.AdminID, &balance, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("mess %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, mapErr(fmt.Errorf("get mess: %w", err))
	}
	m.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	m.CreatedAt = fromNanos(created)
	m.UpdatedAt = fromNanos(updated)

	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id FROM mess_members WHERE mess_id = ? ORDER BY joined_at, user_id",
		id,
	)
	if err != nil {
		return nil, mapErr(fmt.Errorf("get members: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Members = append(m.Members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("iterate members: %w", err))
	}

	menuRows, err := r.db.QueryContext(ctx,
		"SELECT item FROM mess_menu WHERE mess_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return nil, mapErr(fmt.Errorf("get menu: %w", err))
	}
	defer menuRows.Close()
	for menuRows.Next() {
		var item string
		if err := menuRows.Scan(&item); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		m.Menu = append(m.Menu, item)
	}
	if err := menuRows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("iterate menu: %w", err))
	}

	return m, nil
}

// MessExists reports whether an admin already owns a mess with this name.
func (r *Repository) MessExists(ctx context.Context, name, adminID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM messes WHERE name = ? AND admin_id = ? LIMIT 1",
		name, adminID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, mapErr(fmt.Errorf("mess exists: %w", err))
	}
	return true, nil
}

// UpdateMessInfo applies the non-nil fields and returns the updated mess.
func (r *Repository) UpdateMessInfo(ctx context.Context, id string, name, description, logoRef *string) (*core.Mess, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		set := "updated_at = ?"
		args := []any{nanos(time.Now().UTC())}
		if name != nil {
			set += ", name = ?"
			args = append(args, *name)
		}
		if description != nil {
			set += ", description = ?"
			args = append(args, *description)
		}
		if logoRef != nil {
			set += ", logo_ref = ?"
			args = append(args, *logoRef)
		}
		args = append(args, id)
		res, err := tx.ExecContext(ctx, "UPDATE messes SET "+set+" WHERE id = ?", args...)
		if err != nil {
			if isConstraint(err) {
				return core.ErrDuplicateMess
			}
			return fmt.Errorf("update mess: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("mess %s: %w", id, core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetMess(ctx, id)
}

// DeleteMess removes the mess; with cascade its transactions go in the same
// unit. Member and menu rows are removed by the foreign-key cascade.
func (r *Repository) DeleteMess(ctx context.Context, id string, cascade bool) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if cascade {
			if _, err := tx.ExecContext(ctx, "DELETE FROM income_transactions WHERE mess_id = ?", id); err != nil {
				return fmt.Errorf("delete income transactions: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM expense_transactions WHERE mess_id = ?", id); err != nil {
				return fmt.Errorf("delete expense transactions: %w", err)
			}
		} else {
			var n int64
			err := tx.QueryRowContext(ctx,
				"SELECT (SELECT COUNT(*) FROM income_transactions WHERE mess_id = ?) + (SELECT COUNT(*) FROM expense_transactions WHERE mess_id = ?)",
				id, id,
			).Scan(&n)
			if err != nil {
				return fmt.Errorf("count transactions: %w", err)
			}
			if n > 0 {
				return core.ErrMessHasLedger
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM messes WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete mess: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("mess %s: %w", id, core.ErrNotFound)
		}
		return nil
	})
}

// ListMessIDs returns the ids of all messes, oldest first.
func (r *Repository) ListMessIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM messes ORDER BY created_at, id")
	if err != nil {
		return nil, mapErr(fmt.Errorf("list messes: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan mess id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(fmt.Errorf("iterate messes: %w", err))
	}
	return ids, nil
}

// AddMember appends a user to the member set.
func (r *Repository) AddMember(ctx context.Context, messID, userID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireMess(ctx, tx, messID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO mess_members (mess_id, user_id, joined_at) VALUES (?, ?, ?)",
			messID, userID, nanos(time.Now().UTC()),
		)
		if err != nil {
			if isConstraint(err) {
				return core.ErrAlreadyMember
			}
			return fmt.Errorf("insert member: %w", err)
		}
		return touchMess(ctx, tx, messID)
	})
}

// RemoveMember drops a user from the member set.
func (r *Repository) RemoveMember(ctx context.Context, messID, userID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireMess(ctx, tx, messID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"DELETE FROM mess_members WHERE mess_id = ? AND user_id = ?",
			messID, userID,
		)
		if err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return core.ErrNotAMember
		}
		return touchMess(ctx, tx, messID)
	})
}

// SetAdmin reassigns the mess admin.
func (r *Repository) SetAdmin(ctx context.Context, messID, userID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE messes SET admin_id = ?, updated_at = ? WHERE id = ?",
			userID, nanos(time.Now().UTC()), messID,
		)
		if err != nil {
			return fmt.Errorf("set admin: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("mess %s: %w", messID, core.ErrNotFound)
		}
		return nil
	})
}

// AddMenuItem appends an item to the mess menu.
func (r *Repository) AddMenuItem(ctx context.Context, messID, item string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireMess(ctx, tx, messID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO mess_menu (mess_id, position, item) VALUES (?, (SELECT COALESCE(MAX(position) + 1, 0) FROM mess_menu WHERE mess_id = ?), ?)",
			messID, messID, item,
		)
		if err != nil {
			return fmt.Errorf("insert menu item: %w", err)
		}
		return touchMess(ctx, tx, messID)
	})
}

// RemoveMenuItem removes all occurrences of an item from the menu.
func (r *Repository) RemoveMenuItem(ctx context.Context, messID, item string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireMess(ctx, tx, messID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"DELETE FROM mess_menu WHERE mess_id = ? AND item = ?",
			messID, item,
		)
		if err != nil {
			return fmt.Errorf("delete menu item: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("menu item %q: %w", item, core.ErrNotFound)
		}
		return touchMess(ctx, tx, messID)
	})
}

func requireMess(ctx context.Context, tx *sql.Tx, messID string) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM messes WHERE id = ?", messID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("mess %s: %w", messID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check mess: %w", err)
	}
	return nil
}

func touchMess(ctx context.Context, tx *sql.Tx, messID string) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE messes SET updated_at = ? WHERE id = ?",
		nanos(time.Now().UTC()), messID,
	); err != nil {
		return fmt.Errorf("touch mess: %w", err)
	}
	return nil
}
