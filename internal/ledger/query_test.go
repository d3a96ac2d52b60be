package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"messbook/internal/core"
	"messbook/internal/storage"
)

// seedIncome inserts n income rows with strictly increasing timestamps so
// the newest-first ordering is deterministic.
func seedIncome(t *testing.T, store storage.Store, messID string, n int) []string {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		txn := &core.IncomeTransaction{
			MessID:      messID,
			PayerID:     memberID,
			Description: fmt.Sprintf("contribution %02d", i),
			Amount:      decimal.NewFromInt(int64(i + 1)),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.InsertIncome(ctx, txn); err != nil {
			t.Fatalf("seed income %d: %v", i, err)
		}
		ids[i] = txn.ID
	}
	return ids
}

func TestListIncomePagination(t *testing.T) {
	store, messID := newTestMess(t)
	q := NewQueries(store)
	ctx := context.Background()
	seedIncome(t, store, messID, 25)

	t.Run("first page defaults", func(t *testing.T) {
		page, err := q.ListIncome(ctx, messID, 0, 0)
		if err != nil {
			t.Fatalf("ListIncome: %v", err)
		}
		if page.Page != 1 || page.PageSize != DefaultPageSize {
			t.Errorf("page = %d size %d, want 1 size %d", page.Page, page.PageSize, DefaultPageSize)
		}
		if len(page.Items) != 10 {
			t.Fatalf("len(items) = %d, want 10", len(page.Items))
		}
		if !page.HasMore {
			t.Error("HasMore = false, want true")
		}
		// Newest seeded row comes first.
		if page.Items[0].Description != "contribution 24" {
			t.Errorf("first item = %q, want contribution 24", page.Items[0].Description)
		}
	})

	t.Run("last partial page", func(t *testing.T) {
		page, err := q.ListIncome(ctx, messID, 3, 10)
		if err != nil {
			t.Fatalf("ListIncome: %v", err)
		}
		if len(page.Items) != 5 {
			t.Fatalf("len(items) = %d, want 5", len(page.Items))
		}
		if page.HasMore {
			t.Error("HasMore = true on last page, want false")
		}
		if page.Items[4].Description != "contribution 00" {
			t.Errorf("last item = %q, want contribution 00", page.Items[4].Description)
		}
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		page, err := q.ListIncome(ctx, messID, 4, 10)
		if err != nil {
			t.Fatalf("ListIncome: %v", err)
		}
		if len(page.Items) != 0 {
			t.Errorf("len(items) = %d, want 0", len(page.Items))
		}
		if page.HasMore {
			t.Error("HasMore = true past the end, want false")
		}
	})

	t.Run("pages are disjoint and ordered", func(t *testing.T) {
		seen := map[string]bool{}
		var prev time.Time
		first := true
		for p := 1; p <= 3; p++ {
			page, err := q.ListIncome(ctx, messID, p, 10)
			if err != nil {
				t.Fatalf("ListIncome page %d: %v", p, err)
			}
			for _, item := range page.Items {
				if seen[item.ID] {
					t.Fatalf("transaction %s appeared on two pages", item.ID)
				}
				seen[item.ID] = true
				if !first && item.CreatedAt.After(prev) {
					t.Fatalf("ordering broken: %s newer than previous item", item.ID)
				}
				prev = item.CreatedAt
				first = false
			}
		}
		if len(seen) != 25 {
			t.Errorf("total unique items = %d, want 25", len(seen))
		}
	})

	t.Run("unknown mess", func(t *testing.T) {
		_, err := q.ListIncome(ctx, "no-such-mess", 1, 10)
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("ListIncome error = %v, want ErrNotFound", err)
		}
	})
}

func TestListIncomeJoinsPayer(t *testing.T) {
	store, messID := newTestMess(t)
	q := NewQueries(store)
	ctx := context.Background()
	seedIncome(t, store, messID, 3)

	page, err := q.ListIncome(ctx, messID, 1, 10)
	if err != nil {
		t.Fatalf("ListIncome: %v", err)
	}
	for _, item := range page.Items {
		if item.Payer.ID != memberID {
			t.Errorf("payer id = %s, want %s", item.Payer.ID, memberID)
		}
		if item.Payer.DisplayName == "" {
			t.Error("payer display name not joined")
		}
	}
}

func TestListIncomeByPayer(t *testing.T) {
	store, messID := newTestMess(t)
	q := NewQueries(store)
	ctx := context.Background()
	seedIncome(t, store, messID, 4)

	// One extra row from a different payer must be filtered out.
	other := &core.IncomeTransaction{
		MessID:      messID,
		PayerID:     adminID,
		Description: "admin top-up",
		Amount:      decimal.NewFromInt(9),
	}
	if err := store.InsertIncome(ctx, other); err != nil {
		t.Fatalf("seed income: %v", err)
	}

	page, err := q.ListIncomeByPayer(ctx, messID, memberID, 1, 10)
	if err != nil {
		t.Fatalf("ListIncomeByPayer: %v", err)
	}
	if len(page.Items) != 4 {
		t.Fatalf("len(items) = %d, want 4", len(page.Items))
	}
	for _, item := range page.Items {
		if item.PayerID != memberID {
			t.Errorf("row for payer %s leaked into filtered view", item.PayerID)
		}
	}
}

func TestListExpenseJoinsMess(t *testing.T) {
	store, messID := newTestMess(t)
	q := NewQueries(store)
	ctx := context.Background()

	txn := &core.ExpenseTransaction{
		MessID:      messID,
		Reason:      "groceries",
		Description: "weekly shop",
		Amount:      decimal.NewFromInt(12),
	}
	if err := store.InsertExpense(ctx, txn); err != nil {
		t.Fatalf("seed expense: %v", err)
	}

	page, err := q.ListExpense(ctx, messID, 1, 10)
	if err != nil {
		t.Fatalf("ListExpense: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(page.Items))
	}
	if page.Items[0].MessName != "East Block" {
		t.Errorf("mess name = %q, want East Block", page.Items[0].MessName)
	}
}

func TestVanishedPayerDegradesToIDOnly(t *testing.T) {
	store, messID := newTestMess(t)
	q := NewQueries(store)
	ctx := context.Background()

	txn := &core.IncomeTransaction{
		MessID:      messID,
		PayerID:     "ghost",
		Description: "left before the dues cleared",
		Amount:      decimal.NewFromInt(5),
	}
	if err := store.InsertIncome(ctx, txn); err != nil {
		t.Fatalf("seed income: %v", err)
	}

	page, err := q.ListIncome(ctx, messID, 1, 10)
	if err != nil {
		t.Fatalf("ListIncome: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(page.Items))
	}
	got := page.Items[0].Payer
	if got.ID != "ghost" || got.DisplayName != "" {
		t.Errorf("vanished payer summary = %+v, want id-only", got)
	}
}

func TestMembersJoinsDisplayFields(t *testing.T) {
	store, messID := newTestMess(t)
	q := NewQueries(store)
	ctx := context.Background()

	members, err := q.Members(ctx, messID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(members))
	}
	if members[0].ID != adminID || members[0].DisplayName != "user "+adminID {
		t.Errorf("members[0] = %+v, want joined admin", members[0])
	}
	if members[1].ID != memberID || members[1].DisplayName != "user "+memberID {
		t.Errorf("members[1] = %+v, want joined member", members[1])
	}

	// A member whose user record vanished keeps their slot, id-only.
	if err := store.AddMember(ctx, messID, "ghost"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	members, err = q.Members(ctx, messID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("len(members) = %d, want 3", len(members))
	}
	if members[2].ID != "ghost" || members[2].DisplayName != "" {
		t.Errorf("members[2] = %+v, want id-only", members[2])
	}

	if _, err := q.Members(ctx, "no-such-mess"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Members error = %v, want ErrNotFound", err)
	}
}
