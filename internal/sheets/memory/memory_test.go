package memory

import (
	"context"
	"testing"

	"messbook/internal/events"
)

func TestAppendAndEntries(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Append(ctx, events.NewLedgerEvent(events.ExpenseCreated, "m1", "t1", "u1", "12.00", "gas"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	if _, err := s.Append(ctx, events.NewLedgerEvent(events.IncomeCreated, "m1", "t2", "u1", "30.00", "dues")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].TransactionID != "t1" || entries[1].TransactionID != "t2" {
		t.Errorf("entries out of order: %+v", entries)
	}

	// Entries returns a copy; mutating it must not touch the store.
	entries[0].TransactionID = "mutated"
	if s.Entries()[0].TransactionID != "t1" {
		t.Error("Entries exposed internal state")
	}
}
