package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"messbook/internal/core"
)

func seedMess(t *testing.T, r *Repository) *core.Mess {
	t.Helper()
	ctx := context.Background()
	if err := r.CreateUser(ctx, &core.User{ID: "u1", DisplayName: "user one"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	m := &core.Mess{
		Name:        "Main",
		Description: "fund",
		AdminID:     "u1",
		Members:     []string{"u1"},
		Balance:     decimal.Zero,
	}
	if err := r.CreateMess(ctx, m); err != nil {
		t.Fatalf("seed mess: %v", err)
	}
	return m
}

func TestGetMessReturnsCopy(t *testing.T) {
	r := New()
	ctx := context.Background()
	m := seedMess(t, r)

	got, err := r.GetMess(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMess: %v", err)
	}
	got.Members = append(got.Members, "intruder")
	got.Name = "hijacked"

	again, err := r.GetMess(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMess: %v", err)
	}
	if len(again.Members) != 1 || again.Name != "Main" {
		t.Errorf("stored mess mutated through a returned copy: %+v", again)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	r := New()
	ctx := context.Background()
	u := &core.User{ID: "u1", DisplayName: "one"}
	if err := r.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	dup := &core.User{ID: "u1", DisplayName: "two"}
	if err := r.CreateUser(ctx, dup); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("duplicate CreateUser error = %v, want ErrInvalidState", err)
	}
}

func TestListIncomePagingEdges(t *testing.T) {
	r := New()
	ctx := context.Background()
	m := seedMess(t, r)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		txn := &core.IncomeTransaction{
			MessID:      m.ID,
			PayerID:     "u1",
			Description: fmt.Sprintf("row %d", i),
			Amount:      decimal.NewFromInt(1),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := r.InsertIncome(ctx, txn); err != nil {
			t.Fatalf("InsertIncome: %v", err)
		}
	}

	tests := []struct {
		name   string
		limit  int
		offset int
		want   []string
	}{
		{name: "first page", limit: 2, offset: 0, want: []string{"row 4", "row 3"}},
		{name: "middle page", limit: 2, offset: 2, want: []string{"row 2", "row 1"}},
		{name: "tail", limit: 2, offset: 4, want: []string{"row 0"}},
		{name: "past the end", limit: 2, offset: 10, want: nil},
		{name: "all", limit: 100, offset: 0, want: []string{"row 4", "row 3", "row 2", "row 1", "row 0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := r.ListIncome(ctx, m.ID, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("ListIncome: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("len(rows) = %d, want %d", len(rows), len(tt.want))
			}
			for i, want := range tt.want {
				if rows[i].Description != want {
					t.Errorf("rows[%d] = %q, want %q", i, rows[i].Description, want)
				}
			}
		})
	}
}

func TestEqualTimestampsBreakTiesByID(t *testing.T) {
	r := New()
	ctx := context.Background()
	m := seedMess(t, r)

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c"} {
		txn := &core.IncomeTransaction{
			ID:          id,
			MessID:      m.ID,
			PayerID:     "u1",
			Description: "same instant",
			Amount:      decimal.NewFromInt(1),
			CreatedAt:   at,
		}
		if err := r.InsertIncome(ctx, txn); err != nil {
			t.Fatalf("InsertIncome: %v", err)
		}
	}

	rows, err := r.ListIncome(ctx, m.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListIncome: %v", err)
	}
	var got []string
	for _, row := range rows {
		got = append(got, row.ID)
	}
	want := []string{"c", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
