package ledger

import (
	"context"
	"time"

	"messbook/internal/cache"
	"messbook/internal/core"
	"messbook/internal/storage"
)

const (
	// DefaultPageSize applies when the caller does not specify one.
	DefaultPageSize = 10

	userCacheSize = 256
	userCacheTTL  = 5 * time.Minute
)

type (
	// UserSummary carries the display fields attached to joined views.
	// Credentials never appear here.
	UserSummary struct {
		ID          string
		DisplayName string
		Email       string
		AvatarRef   string
	}

	// IncomeEntry is an income transaction joined with its payer.
	IncomeEntry struct {
		core.IncomeTransaction
		Payer UserSummary
	}

	// ExpenseEntry is an expense transaction joined with its mess display
	// fields.
	ExpenseEntry struct {
		core.ExpenseTransaction
		MessName    string
		MessLogoRef string
	}

	// Page is one slice of a paginated listing, newest entries first.
	Page[T any] struct {
		Items    []T
		Page     int
		PageSize int
		HasMore  bool
	}
)

// Queries is the read-only side of the ledger. It joins transaction rows
// with directory records for display and never mutates state.
type Queries struct {
	store storage.Store
	users *cache.LRU[UserSummary]
}

// NewQueries creates the query service.
func NewQueries(store storage.Store) *Queries {
	return &Queries{
		store: store,
		users: cache.NewLRU[UserSummary](userCacheSize, userCacheTTL),
	}
}

// normalizePage clamps page and pageSize to their minimums and defaults.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// ListIncome returns one page of a mess's income, newest first, with payer
// display fields attached. Pages past the end are empty, never an error.
func (q *Queries) ListIncome(ctx context.Context, messID string, page, pageSize int) (*Page[IncomeEntry], error) {
	page, pageSize = normalizePage(page, pageSize)
	if _, err := q.store.GetMess(ctx, messID); err != nil {
		return nil, err
	}
	// One extra row decides HasMore without a second query.
	rows, err := q.store.ListIncome(ctx, messID, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return q.incomePage(ctx, rows, page, pageSize)
}

// ListIncomeByPayer filters income to a single payer.
func (q *Queries) ListIncomeByPayer(ctx context.Context, messID, payerID string, page, pageSize int) (*Page[IncomeEntry], error) {
	page, pageSize = normalizePage(page, pageSize)
	if _, err := q.store.GetMess(ctx, messID); err != nil {
		return nil, err
	}
	rows, err := q.store.ListIncomeByPayer(ctx, messID, payerID, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return q.incomePage(ctx, rows, page, pageSize)
}

func (q *Queries) incomePage(ctx context.Context, rows []core.IncomeTransaction, page, pageSize int) (*Page[IncomeEntry], error) {
	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}
	items := make([]IncomeEntry, len(rows))
	for i, t := range rows {
		items[i] = IncomeEntry{
			IncomeTransaction: t,
			Payer:             q.userSummary(ctx, t.PayerID),
		}
	}
	return &Page[IncomeEntry]{Items: items, Page: page, PageSize: pageSize, HasMore: hasMore}, nil
}

// Members returns the mess's member list joined with user display fields, in
// membership order.
func (q *Queries) Members(ctx context.Context, messID string) ([]UserSummary, error) {
	m, err := q.store.GetMess(ctx, messID)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, len(m.Members))
	for i, id := range m.Members {
		out[i] = q.userSummary(ctx, id)
	}
	return out, nil
}

// ListExpense returns one page of a mess's expenses, newest first, with the
// mess display fields attached.
func (q *Queries) ListExpense(ctx context.Context, messID string, page, pageSize int) (*Page[ExpenseEntry], error) {
	page, pageSize = normalizePage(page, pageSize)
	m, err := q.store.GetMess(ctx, messID)
	if err != nil {
		return nil, err
	}
	rows, err := q.store.ListExpense(ctx, messID, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}
	items := make([]ExpenseEntry, len(rows))
	for i, t := range rows {
		items[i] = ExpenseEntry{
			ExpenseTransaction: t,
			MessName:           m.Name,
			MessLogoRef:        m.LogoRef,
		}
	}
	return &Page[ExpenseEntry]{Items: items, Page: page, PageSize: pageSize, HasMore: hasMore}, nil
}

// userSummary resolves a user's display fields through the LRU cache. A
// vanished user degrades to an id-only summary instead of failing the view.
func (q *Queries) userSummary(ctx context.Context, userID string) UserSummary {
	if s, ok := q.users.Get(userID); ok {
		return s
	}
	u, err := q.store.GetUser(ctx, userID)
	if err != nil {
		return UserSummary{ID: userID}
	}
	s := UserSummary{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarRef:   u.AvatarRef,
	}
	q.users.Set(userID, s)
	return s
}
