package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"messbook/internal/core"
	"messbook/internal/storage"
	"messbook/internal/storage/memory"
)

func newService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store := memory.New()
	svc := New(store)
	ctx := context.Background()
	for _, id := range []string{"admin", "member", "other"} {
		if err := svc.CreateUser(ctx, &core.User{ID: id, DisplayName: "user " + id}); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
	return svc, store
}

func createMess(t *testing.T, svc *Service) *core.Mess {
	t.Helper()
	m, err := svc.CreateMess(context.Background(), "admin", "Hostel A", "ground floor mess", "")
	if err != nil {
		t.Fatalf("CreateMess: %v", err)
	}
	return m
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newService(t)
	err := svc.CreateUser(context.Background(), &core.User{DisplayName: "  "})
	if !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("CreateUser error = %v, want ErrEmptyName", err)
	}
}

func TestCreateMess(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	m := createMess(t, svc)
	if m.AdminID != "admin" {
		t.Errorf("admin = %s, want admin", m.AdminID)
	}
	if len(m.Members) != 1 || m.Members[0] != "admin" {
		t.Errorf("members = %v, want the admin alone", m.Members)
	}
	if !m.Balance.IsZero() {
		t.Errorf("balance = %s, want 0", m.Balance)
	}

	t.Run("duplicate name per admin rejected", func(t *testing.T) {
		_, err := svc.CreateMess(ctx, "admin", "Hostel A", "again", "")
		if !errors.Is(err, core.ErrDuplicateMess) {
			t.Errorf("CreateMess error = %v, want ErrDuplicateMess", err)
		}
	})

	t.Run("same name under another admin allowed", func(t *testing.T) {
		if _, err := svc.CreateMess(ctx, "other", "Hostel A", "different owner", ""); err != nil {
			t.Errorf("CreateMess: %v", err)
		}
	})

	t.Run("unknown actor rejected", func(t *testing.T) {
		_, err := svc.CreateMess(ctx, "nobody", "Hostel B", "desc", "")
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("CreateMess error = %v, want ErrNotFound", err)
		}
	})
}

func TestUpdateMessInfo(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	m := createMess(t, svc)

	t.Run("non admin rejected", func(t *testing.T) {
		name := "New Name"
		_, err := svc.UpdateMessInfo(ctx, m.ID, "member", &name, nil)
		if !errors.Is(err, core.ErrUnauthorized) {
			t.Errorf("UpdateMessInfo error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("blank set field rejected", func(t *testing.T) {
		blank := "   "
		_, err := svc.UpdateMessInfo(ctx, m.ID, "admin", &blank, nil)
		if !errors.Is(err, core.ErrEmptyName) {
			t.Errorf("UpdateMessInfo error = %v, want ErrEmptyName", err)
		}
	})

	t.Run("no effective change rejected", func(t *testing.T) {
		same := m.Name
		_, err := svc.UpdateMessInfo(ctx, m.ID, "admin", &same, nil)
		if !errors.Is(err, core.ErrNoChange) {
			t.Errorf("UpdateMessInfo error = %v, want ErrNoChange", err)
		}
	})

	t.Run("both fields absent rejected", func(t *testing.T) {
		_, err := svc.UpdateMessInfo(ctx, m.ID, "admin", nil, nil)
		if !errors.Is(err, core.ErrNoChange) {
			t.Errorf("UpdateMessInfo error = %v, want ErrNoChange", err)
		}
	})

	t.Run("partial update keeps other field", func(t *testing.T) {
		desc := "renovated"
		updated, err := svc.UpdateMessInfo(ctx, m.ID, "admin", nil, &desc)
		if err != nil {
			t.Fatalf("UpdateMessInfo: %v", err)
		}
		if updated.Name != m.Name {
			t.Errorf("name = %q, want unchanged %q", updated.Name, m.Name)
		}
		if updated.Description != "renovated" {
			t.Errorf("description = %q, want renovated", updated.Description)
		}
	})
}

func TestUpdateMessLogo(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	m := createMess(t, svc)

	updated, err := svc.UpdateMessLogo(ctx, m.ID, "admin", "media/logo-7.png")
	if err != nil {
		t.Fatalf("UpdateMessLogo: %v", err)
	}
	if updated.LogoRef != "media/logo-7.png" {
		t.Errorf("logo = %q, want media/logo-7.png", updated.LogoRef)
	}

	if _, err := svc.UpdateMessLogo(ctx, m.ID, "admin", "  "); !errors.Is(err, core.ErrValidation) {
		t.Errorf("blank logo error = %v, want ErrValidation", err)
	}
	if _, err := svc.UpdateMessLogo(ctx, m.ID, "member", "x"); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("non admin error = %v, want ErrUnauthorized", err)
	}
}

func TestMembership(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	m := createMess(t, svc)

	if err := svc.AddMember(ctx, m.ID, "admin", "member"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	t.Run("duplicate add rejected", func(t *testing.T) {
		if err := svc.AddMember(ctx, m.ID, "admin", "member"); !errors.Is(err, core.ErrAlreadyMember) {
			t.Errorf("AddMember error = %v, want ErrAlreadyMember", err)
		}
	})

	t.Run("unknown user rejected", func(t *testing.T) {
		if err := svc.AddMember(ctx, m.ID, "admin", "nobody"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("AddMember error = %v, want ErrNotFound", err)
		}
	})

	t.Run("non admin cannot add", func(t *testing.T) {
		if err := svc.AddMember(ctx, m.ID, "member", "other"); !errors.Is(err, core.ErrUnauthorized) {
			t.Errorf("AddMember error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("admin cannot be removed", func(t *testing.T) {
		if err := svc.RemoveMember(ctx, m.ID, "admin", "admin"); !errors.Is(err, core.ErrAdminRemoval) {
			t.Errorf("RemoveMember error = %v, want ErrAdminRemoval", err)
		}
	})

	t.Run("remove member", func(t *testing.T) {
		if err := svc.RemoveMember(ctx, m.ID, "admin", "member"); err != nil {
			t.Fatalf("RemoveMember: %v", err)
		}
		ok, err := svc.IsMember(ctx, m.ID, "member")
		if err != nil {
			t.Fatalf("IsMember: %v", err)
		}
		if ok {
			t.Error("member still present after removal")
		}
	})

	t.Run("remove absent member rejected", func(t *testing.T) {
		if err := svc.RemoveMember(ctx, m.ID, "admin", "member"); !errors.Is(err, core.ErrNotAMember) {
			t.Errorf("RemoveMember error = %v, want ErrNotAMember", err)
		}
	})
}

func TestTransferAdmin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	m := createMess(t, svc)

	t.Run("target must be a member", func(t *testing.T) {
		if err := svc.TransferAdmin(ctx, m.ID, "admin", "member"); !errors.Is(err, core.ErrNotAMember) {
			t.Errorf("TransferAdmin error = %v, want ErrNotAMember", err)
		}
	})

	if err := svc.AddMember(ctx, m.ID, "admin", "member"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := svc.TransferAdmin(ctx, m.ID, "admin", "member"); err != nil {
		t.Fatalf("TransferAdmin: %v", err)
	}

	ok, err := svc.IsAdmin(ctx, m.ID, "member")
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if !ok {
		t.Error("new admin not installed")
	}

	t.Run("former admin loses standing", func(t *testing.T) {
		if err := svc.TransferAdmin(ctx, m.ID, "admin", "admin"); !errors.Is(err, core.ErrUnauthorized) {
			t.Errorf("TransferAdmin error = %v, want ErrUnauthorized", err)
		}
	})
}

func TestMenu(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	m := createMess(t, svc)

	if err := svc.AddMenuItem(ctx, m.ID, "admin", "dal tadka"); err != nil {
		t.Fatalf("AddMenuItem: %v", err)
	}
	if err := svc.AddMenuItem(ctx, m.ID, "admin", "  "); !errors.Is(err, core.ErrValidation) {
		t.Errorf("blank item error = %v, want ErrValidation", err)
	}
	if err := svc.AddMenuItem(ctx, m.ID, "member", "rice"); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("non admin error = %v, want ErrUnauthorized", err)
	}

	got, err := svc.GetMess(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMess: %v", err)
	}
	if len(got.Menu) != 1 || got.Menu[0] != "dal tadka" {
		t.Errorf("menu = %v, want [dal tadka]", got.Menu)
	}

	if err := svc.RemoveMenuItem(ctx, m.ID, "admin", "dal tadka"); err != nil {
		t.Fatalf("RemoveMenuItem: %v", err)
	}
	if err := svc.RemoveMenuItem(ctx, m.ID, "admin", "dal tadka"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("remove absent item error = %v, want ErrNotFound", err)
	}
}

func TestDeleteMess(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	m := createMess(t, svc)

	txn := &core.IncomeTransaction{
		MessID:      m.ID,
		PayerID:     "admin",
		Description: "dues",
		Amount:      decimal.NewFromInt(10),
	}
	if err := store.InsertIncome(ctx, txn); err != nil {
		t.Fatalf("seed income: %v", err)
	}

	t.Run("blocked while ledger exists", func(t *testing.T) {
		if err := svc.DeleteMess(ctx, m.ID, "admin", false); !errors.Is(err, core.ErrMessHasLedger) {
			t.Errorf("DeleteMess error = %v, want ErrMessHasLedger", err)
		}
	})

	t.Run("non admin rejected", func(t *testing.T) {
		if err := svc.DeleteMess(ctx, m.ID, "member", true); !errors.Is(err, core.ErrUnauthorized) {
			t.Errorf("DeleteMess error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("cascade removes mess and ledger", func(t *testing.T) {
		if err := svc.DeleteMess(ctx, m.ID, "admin", true); err != nil {
			t.Fatalf("DeleteMess: %v", err)
		}
		if _, err := svc.GetMess(ctx, m.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("GetMess after delete error = %v, want ErrNotFound", err)
		}
	})
}
