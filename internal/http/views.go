package http

import (
	"time"

	"messbook/internal/core"
	"messbook/internal/ledger"
)

// View types keep the wire format independent of the domain types. Amounts
// travel as decimal text.
type (
	userView struct {
		ID          string    `json:"id"`
		DisplayName string    `json:"display_name"`
		Email       string    `json:"email,omitempty"`
		AvatarRef   string    `json:"avatar_ref,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}

	messView struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		LogoRef     string    `json:"logo_ref,omitempty"`
		AdminID     string    `json:"admin_id"`
		Members     []string  `json:"members"`
		Balance     string    `json:"balance"`
		Menu        []string  `json:"menu,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	userSummaryView struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name,omitempty"`
		Email       string `json:"email,omitempty"`
		AvatarRef   string `json:"avatar_ref,omitempty"`
	}

	incomeView struct {
		ID          string          `json:"id"`
		MessID      string          `json:"mess_id"`
		Payer       userSummaryView `json:"payer"`
		Description string          `json:"description"`
		Amount      string          `json:"amount"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}

	expenseView struct {
		ID          string    `json:"id"`
		MessID      string    `json:"mess_id"`
		MessName    string    `json:"mess_name,omitempty"`
		MessLogoRef string    `json:"mess_logo_ref,omitempty"`
		Reason      string    `json:"reason"`
		Description string    `json:"description"`
		Amount      string    `json:"amount"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	pageView[T any] struct {
		Items    []T  `json:"items"`
		Page     int  `json:"page"`
		PageSize int  `json:"page_size"`
		HasMore  bool `json:"has_more"`
	}

	reconcileView struct {
		MessID     string `json:"mess_id"`
		Balance    string `json:"balance"`
		Income     string `json:"income"`
		Expense    string `json:"expense"`
		Expected   string `json:"expected"`
		Drift      string `json:"drift"`
		Consistent bool   `json:"consistent"`
	}
)

func toUserView(u *core.User) userView {
	return userView{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarRef:   u.AvatarRef,
		CreatedAt:   u.CreatedAt,
	}
}

func toMessView(m *core.Mess) messView {
	return messView{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		LogoRef:     m.LogoRef,
		AdminID:     m.AdminID,
		Members:     m.Members,
		Balance:     m.Balance.String(),
		Menu:        m.Menu,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toUserSummaryView(u ledger.UserSummary) userSummaryView {
	return userSummaryView{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarRef:   u.AvatarRef,
	}
}

func toIncomeView(t *core.IncomeTransaction, payer ledger.UserSummary) incomeView {
	return incomeView{
		ID:          t.ID,
		MessID:      t.MessID,
		Payer:       toUserSummaryView(payer),
		Description: t.Description,
		Amount:      t.Amount.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toExpenseView(t *core.ExpenseTransaction, messName, messLogoRef string) expenseView {
	return expenseView{
		ID:          t.ID,
		MessID:      t.MessID,
		MessName:    messName,
		MessLogoRef: messLogoRef,
		Reason:      t.Reason,
		Description: t.Description,
		Amount:      t.Amount.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toIncomePage(p *ledger.Page[ledger.IncomeEntry]) pageView[incomeView] {
	items := make([]incomeView, len(p.Items))
	for i, e := range p.Items {
		items[i] = toIncomeView(&e.IncomeTransaction, e.Payer)
	}
	return pageView[incomeView]{Items: items, Page: p.Page, PageSize: p.PageSize, HasMore: p.HasMore}
}

func toExpensePage(p *ledger.Page[ledger.ExpenseEntry]) pageView[expenseView] {
	items := make([]expenseView, len(p.Items))
	for i, e := range p.Items {
		items[i] = toExpenseView(&e.ExpenseTransaction, e.MessName, e.MessLogoRef)
	}
	return pageView[expenseView]{Items: items, Page: p.Page, PageSize: p.PageSize, HasMore: p.HasMore}
}

func toReconcileView(r *ledger.Reconciliation) reconcileView {
	return reconcileView{
		MessID:     r.MessID,
		Balance:    r.Balance.String(),
		Income:     r.Income.String(),
		Expense:    r.Expense.String(),
		Expected:   r.Expected.String(),
		Drift:      r.Drift.String(),
		Consistent: r.Consistent(),
	}
}
