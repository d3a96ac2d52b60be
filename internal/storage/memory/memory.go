// Package memory provides an in-memory implementation of storage.Store,
// used by tests and as a zero-dependency backend for local runs.
//
// Atomicity: a mutex per mess admits one mutation at a time, so each
// transaction-write + balance-delta pair is applied under the mess lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"messbook/internal/core"
	"messbook/internal/storage"
)

// Ensure Repository implements storage.Store
var _ storage.Store = (*Repository)(nil)

// Repository implements storage.Store with in-process maps.
type Repository struct {
	mu     sync.RWMutex // guards the maps themselves
	users  map[string]core.User
	messes map[string]*messState
}

// messState bundles one mess with its ledger under a single lock.
type messState struct {
	mu      sync.Mutex
	mess    core.Mess
	income  map[string]core.IncomeTransaction
	expense map[string]core.ExpenseTransaction
}

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{
		users:  make(map[string]core.User),
		messes: make(map[string]*messState),
	}
}

// Close implements storage.Store; there is nothing to release.
func (r *Repository) Close() error { return nil }

func (r *Repository) state(id string) (*messState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.messes[id]
	if !ok {
		return nil, fmt.Errorf("mess %s: %w", id, core.ErrNotFound)
	}
	return ms, nil
}

// stateByTxn locates the mess owning a transaction id.
func (r *Repository) stateByTxn(id string, income bool) (*messState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ms := range r.messes {
		ms.mu.Lock()
		var ok bool
		if income {
			_, ok = ms.income[id]
		} else {
			_, ok = ms.expense[id]
		}
		ms.mu.Unlock()
		if ok {
			return ms, nil
		}
	}
	return nil, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (r *Repository) CreateUser(ctx context.Context, u *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, ok := r.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, core.ErrInvalidState)
	}
	r.users[u.ID] = *u
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	return &u, nil
}

func (r *Repository) CreateMess(ctx context.Context, m *core.Mess) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = m.CreatedAt
	for _, ms := range r.messes {
		if ms.mess.Name == m.Name && ms.mess.AdminID == m.AdminID {
			return core.ErrDuplicateMess
		}
	}
	r.messes[m.ID] = &messState{
		mess:    cloneMess(m),
		income:  make(map[string]core.IncomeTransaction),
		expense: make(map[string]core.ExpenseTransaction),
	}
	return nil
}

func (r *Repository) GetMess(ctx context.Context, id string) (*core.Mess, error) {
	ms, err := r.state(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	m := cloneMess(&ms.mess)
	return &m, nil
}

func (r *Repository) MessExists(ctx context.Context, name, adminID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ms := range r.messes {
		if ms.mess.Name == name && ms.mess.AdminID == adminID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) UpdateMessInfo(ctx context.Context, id string, name, description, logoRef *string) (*core.Mess, error) {
	ms, err := r.state(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if name != nil {
		ms.mess.Name = *name
	}
	if description != nil {
		ms.mess.Description = *description
	}
	if logoRef != nil {
		ms.mess.LogoRef = *logoRef
	}
	ms.mess.UpdatedAt = time.Now().UTC()
	m := cloneMess(&ms.mess)
	return &m, nil
}

func (r *Repository) DeleteMess(ctx context.Context, id string, cascade bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.messes[id]
	if !ok {
		return fmt.Errorf("mess %s: %w", id, core.ErrNotFound)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if !cascade && (len(ms.income) > 0 || len(ms.expense) > 0) {
		return core.ErrMessHasLedger
	}
	delete(r.messes, id)
	return nil
}

func (r *Repository) ListMessIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	type entry struct {
		id      string
		created time.Time
	}
	entries := make([]entry, 0, len(r.messes))
	for id, ms := range r.messes {
		entries = append(entries, entry{id, ms.mess.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].created.Equal(entries[j].created) {
			return entries[i].id < entries[j].id
		}
		return entries[i].created.Before(entries[j].created)
	})
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}

func (r *Repository) AddMember(ctx context.Context, messID, userID string) error {
	ms, err := r.state(messID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.mess.IsMember(userID) {
		return core.ErrAlreadyMember
	}
	ms.mess.Members = append(ms.mess.Members, userID)
	ms.mess.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) RemoveMember(ctx context.Context, messID, userID string) error {
	ms, err := r.state(messID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	members := ms.mess.Members[:0:0]
	found := false
	for _, id := range ms.mess.Members {
		if id == userID {
			found = true
			continue
		}
		members = append(members, id)
	}
	if !found {
		return core.ErrNotAMember
	}
	ms.mess.Members = members
	ms.mess.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) SetAdmin(ctx context.Context, messID, userID string) error {
	ms, err := r.state(messID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.mess.AdminID = userID
	ms.mess.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) AddMenuItem(ctx context.Context, messID, item string) error {
	ms, err := r.state(messID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.mess.Menu = append(ms.mess.Menu, item)
	ms.mess.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) RemoveMenuItem(ctx context.Context, messID, item string) error {
	ms, err := r.state(messID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	menu := ms.mess.Menu[:0:0]
	found := false
	for _, it := range ms.mess.Menu {
		if it == item {
			found = true
			continue
		}
		menu = append(menu, it)
	}
	if !found {
		return fmt.Errorf("menu item %q: %w", item, core.ErrNotFound)
	}
	ms.mess.Menu = menu
	ms.mess.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) InsertIncome(ctx context.Context, t *core.IncomeTransaction) error {
	ms, err := r.state(t.MessID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	ms.income[t.ID] = *t
	ms.mess.Balance = ms.mess.Balance.Add(t.Amount)
	ms.mess.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateIncome rewrites the record; the balance moves by the new amount
// minus the stored one, both read under the mess lock.
func (r *Repository) UpdateIncome(ctx context.Context, t *core.IncomeTransaction) error {
	ms, err := r.stateByTxn(t.ID, true)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	prior, ok := ms.income[t.ID]
	if !ok {
		return fmt.Errorf("income %s: %w", t.ID, core.ErrNotFound)
	}
	t.UpdatedAt = time.Now().UTC()
	ms.income[t.ID] = *t
	ms.mess.Balance = ms.mess.Balance.Add(t.Amount.Sub(prior.Amount))
	ms.mess.UpdatedAt = t.UpdatedAt
	return nil
}

func (r *Repository) DeleteIncome(ctx context.Context, id string) error {
	ms, err := r.stateByTxn(id, true)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	t, ok := ms.income[id]
	if !ok {
		return fmt.Errorf("income %s: %w", id, core.ErrNotFound)
	}
	delete(ms.income, id)
	ms.mess.Balance = ms.mess.Balance.Sub(t.Amount)
	ms.mess.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) GetIncome(ctx context.Context, id string) (*core.IncomeTransaction, error) {
	ms, err := r.stateByTxn(id, true)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	t, ok := ms.income[id]
	if !ok {
		return nil, fmt.Errorf("income %s: %w", id, core.ErrNotFound)
	}
	return &t, nil
}

func (r *Repository) ListIncome(ctx context.Context, messID string, limit, offset int) ([]core.IncomeTransaction, error) {
	return r.listIncome(ctx, messID, "", limit, offset)
}

func (r *Repository) ListIncomeByPayer(ctx context.Context, messID, payerID string, limit, offset int) ([]core.IncomeTransaction, error) {
	return r.listIncome(ctx, messID, payerID, limit, offset)
}

func (r *Repository) listIncome(ctx context.Context, messID, payerID string, limit, offset int) ([]core.IncomeTransaction, error) {
	ms, err := r.state(messID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	all := make([]core.IncomeTransaction, 0, len(ms.income))
	for _, t := range ms.income {
		if payerID != "" && t.PayerID != payerID {
			continue
		}
		all = append(all, t)
	}
	ms.mu.Unlock()
	sortNewestFirst(all, func(t core.IncomeTransaction) (time.Time, string) { return t.CreatedAt, t.ID })
	return pageOf(all, limit, offset), nil
}

func (r *Repository) InsertExpense(ctx context.Context, t *core.ExpenseTransaction) error {
	ms, err := r.state(t.MessID)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	ms.expense[t.ID] = *t
	ms.mess.Balance = ms.mess.Balance.Sub(t.Amount)
	ms.mess.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateExpense mirrors UpdateIncome with the balance sign inverted.
func (r *Repository) UpdateExpense(ctx context.Context, t *core.ExpenseTransaction) error {
	ms, err := r.stateByTxn(t.ID, false)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	prior, ok := ms.expense[t.ID]
	if !ok {
		return fmt.Errorf("expense %s: %w", t.ID, core.ErrNotFound)
	}
	t.UpdatedAt = time.Now().UTC()
	ms.expense[t.ID] = *t
	ms.mess.Balance = ms.mess.Balance.Add(prior.Amount.Sub(t.Amount))
	ms.mess.UpdatedAt = t.UpdatedAt
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	ms, err := r.stateByTxn(id, false)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	t, ok := ms.expense[id]
	if !ok {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	delete(ms.expense, id)
	ms.mess.Balance = ms.mess.Balance.Add(t.Amount)
	ms.mess.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, id string) (*core.ExpenseTransaction, error) {
	ms, err := r.stateByTxn(id, false)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	t, ok := ms.expense[id]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return &t, nil
}

func (r *Repository) ListExpense(ctx context.Context, messID string, limit, offset int) ([]core.ExpenseTransaction, error) {
	ms, err := r.state(messID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	all := make([]core.ExpenseTransaction, 0, len(ms.expense))
	for _, t := range ms.expense {
		all = append(all, t)
	}
	ms.mu.Unlock()
	sortNewestFirst(all, func(t core.ExpenseTransaction) (time.Time, string) { return t.CreatedAt, t.ID })
	return pageOf(all, limit, offset), nil
}

func (r *Repository) CountTransactions(ctx context.Context, messID string) (int64, error) {
	ms, err := r.state(messID)
	if err != nil {
		return 0, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return int64(len(ms.income) + len(ms.expense)), nil
}

func (r *Repository) LedgerSums(ctx context.Context, messID string) (decimal.Decimal, decimal.Decimal, error) {
	ms, err := r.state(messID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	income := decimal.Zero
	for _, t := range ms.income {
		income = income.Add(t.Amount)
	}
	expense := decimal.Zero
	for _, t := range ms.expense {
		expense = expense.Add(t.Amount)
	}
	return income, expense, nil
}

func cloneMess(m *core.Mess) core.Mess {
	out := *m
	out.Members = append([]string(nil), m.Members...)
	out.Menu = append([]string(nil), m.Menu...)
	return out
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti.Equal(tj) {
			return idi > idj
		}
		return ti.After(tj)
	})
}

func pageOf[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
