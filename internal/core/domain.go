package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// User is an identity record. Credentials and sessions live outside this
	// system; only the display fields needed for ledger joins are kept here.
	User struct {
		ID          string
		DisplayName string
		Email       string
		AvatarRef   string // opaque reference into the external media store
		CreatedAt   time.Time
	}

	// Mess is a group of users sharing a common fund. Balance is a
	// materialized aggregate owned exclusively by the ledger engine and must
	// equal total income minus total expense at every quiescent point.
	Mess struct {
		ID          string
		Name        string
		Description string
		LogoRef     string // opaque reference into the external media store
		AdminID     string
		Members     []string
		Balance     decimal.Decimal
		Menu        []string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// IncomeTransaction records money received into the mess balance.
	IncomeTransaction struct {
		ID          string
		MessID      string
		PayerID     string
		Description string
		Amount      decimal.Decimal
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// ExpenseTransaction records money spent out of the mess balance.
	ExpenseTransaction struct {
		ID          string
		MessID      string
		Reason      string
		Description string
		Amount      decimal.Decimal
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

// IsMember reports whether userID is a current member of the mess.
func (m *Mess) IsMember(userID string) bool {
	for _, id := range m.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether userID is the mess admin.
func (m *Mess) IsAdmin(userID string) bool {
	return m.AdminID == userID
}

func (m *Mess) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(m.Description) == "" {
		return ErrEmptyDescription
	}
	if m.AdminID == "" {
		return ErrMissingID
	}
	if !m.IsMember(m.AdminID) {
		return ErrNotAMember
	}
	return nil
}

func (t *IncomeTransaction) Validate() error {
	if t.MessID == "" || t.PayerID == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return ValidateAmount(t.Amount)
}

func (t *ExpenseTransaction) Validate() error {
	if t.MessID == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(t.Reason) == "" {
		return ErrEmptyReason
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return ValidateAmount(t.Amount)
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.DisplayName) == "" {
		return ErrEmptyName
	}
	return nil
}
