// Package directory is the membership directory: mess records, their member
// sets and admin, and the identity records used for ledger joins. It holds
// no balance logic; the ledger engine asks it authorization questions.
package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"messbook/internal/core"
	applog "messbook/internal/log"
	"messbook/internal/storage"
)

// Service answers membership questions and mutates mess records.
type Service struct {
	store storage.Store
	log   *applog.Logger
}

// New creates a directory service on top of the given store.
func New(store storage.Store) *Service {
	return &Service{
		store: store,
		log:   applog.ForComponent(applog.ComponentDirectory),
	}
}

// CreateUser registers a minimal identity record. Credentials are handled
// by an external collaborator and never pass through here.
func (s *Service) CreateUser(ctx context.Context, u *core.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	s.log.InfoContext(ctx, "User registered", "user_id", u.ID)
	return nil
}

// GetUser resolves an identity record.
func (s *Service) GetUser(ctx context.Context, id string) (*core.User, error) {
	return s.store.GetUser(ctx, id)
}

// CreateMess creates a mess with the actor as admin and sole member.
// Mess names are unique per admin.
func (s *Service) CreateMess(ctx context.Context, actorID, name, description, logoRef string) (*core.Mess, error) {
	name = strings.TrimSpace(name)
	m := &core.Mess{
		Name:        name,
		Description: strings.TrimSpace(description),
		LogoRef:     logoRef,
		AdminID:     actorID,
		Members:     []string{actorID},
		Balance:     decimal.Zero,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, actorID); err != nil {
		return nil, err
	}
	exists, err := s.store.MessExists(ctx, name, actorID)
	if err != nil {
		return nil, fmt.Errorf("check mess name: %w", err)
	}
	if exists {
		return nil, core.ErrDuplicateMess
	}
	if err := s.store.CreateMess(ctx, m); err != nil {
		return nil, fmt.Errorf("create mess: %w", err)
	}
	s.log.InfoContext(ctx, "Mess created", "mess_id", m.ID, "name", m.Name, "admin_id", actorID)
	return m, nil
}

// GetMess retrieves a mess record.
func (s *Service) GetMess(ctx context.Context, id string) (*core.Mess, error) {
	return s.store.GetMess(ctx, id)
}

// IsAdmin reports whether userID is the admin of the mess.
func (s *Service) IsAdmin(ctx context.Context, messID, userID string) (bool, error) {
	m, err := s.store.GetMess(ctx, messID)
	if err != nil {
		return false, err
	}
	return m.IsAdmin(userID), nil
}

// IsMember reports whether userID is a current member of the mess.
func (s *Service) IsMember(ctx context.Context, messID, userID string) (bool, error) {
	m, err := s.store.GetMess(ctx, messID)
	if err != nil {
		return false, err
	}
	return m.IsMember(userID), nil
}

// UpdateMessInfo applies a partial update of name and description. Both
// fields absent is a designed rejection, not a silent success.
func (s *Service) UpdateMessInfo(ctx context.Context, messID, actorID string, name, description *string) (*core.Mess, error) {
	m, err := s.requireAdmin(ctx, messID, actorID)
	if err != nil {
		return nil, err
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, core.ErrEmptyName
	}
	if description != nil && strings.TrimSpace(*description) == "" {
		return nil, core.ErrEmptyDescription
	}
	changed := (name != nil && *name != m.Name) || (description != nil && *description != m.Description)
	if !changed {
		return nil, core.ErrNoChange
	}
	return s.store.UpdateMessInfo(ctx, messID, name, description, nil)
}

// UpdateMessLogo replaces the logo reference. The upload itself happened in
// the external media store before this call.
func (s *Service) UpdateMessLogo(ctx context.Context, messID, actorID, logoRef string) (*core.Mess, error) {
	if _, err := s.requireAdmin(ctx, messID, actorID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(logoRef) == "" {
		return nil, fmt.Errorf("%w: empty logo reference", core.ErrValidation)
	}
	return s.store.UpdateMessInfo(ctx, messID, nil, nil, &logoRef)
}

// DeleteMess removes a mess. Without cascade the call is blocked while
// transactions exist; with cascade the mess and its full ledger go in one
// atomic unit.
func (s *Service) DeleteMess(ctx context.Context, messID, actorID string, cascade bool) error {
	if _, err := s.requireAdmin(ctx, messID, actorID); err != nil {
		return err
	}
	if err := s.store.DeleteMess(ctx, messID, cascade); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Mess deleted", "mess_id", messID, "cascade", cascade)
	return nil
}

// AddMember appends a user to the mess. Admin only.
func (s *Service) AddMember(ctx context.Context, messID, actorID, newMemberID string) error {
	m, err := s.requireAdmin(ctx, messID, actorID)
	if err != nil {
		return err
	}
	if _, err := s.store.GetUser(ctx, newMemberID); err != nil {
		return err
	}
	if m.IsMember(newMemberID) {
		return core.ErrAlreadyMember
	}
	if err := s.store.AddMember(ctx, messID, newMemberID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Member added", "mess_id", messID, "user_id", newMemberID)
	return nil
}

// RemoveMember drops a user from the mess. Admin only; the current admin
// cannot be removed before the role is transferred.
func (s *Service) RemoveMember(ctx context.Context, messID, actorID, memberID string) error {
	m, err := s.requireAdmin(ctx, messID, actorID)
	if err != nil {
		return err
	}
	if memberID == m.AdminID {
		return core.ErrAdminRemoval
	}
	if err := s.store.RemoveMember(ctx, messID, memberID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Member removed", "mess_id", messID, "user_id", memberID)
	return nil
}

// TransferAdmin hands the admin role to another current member.
func (s *Service) TransferAdmin(ctx context.Context, messID, actorID, newAdminID string) error {
	m, err := s.requireAdmin(ctx, messID, actorID)
	if err != nil {
		return err
	}
	if _, err := s.store.GetUser(ctx, newAdminID); err != nil {
		return err
	}
	if !m.IsMember(newAdminID) {
		return core.ErrNotAMember
	}
	if err := s.store.SetAdmin(ctx, messID, newAdminID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Admin transferred", "mess_id", messID, "new_admin_id", newAdminID)
	return nil
}

// AddMenuItem appends an item to the mess menu. Admin only.
func (s *Service) AddMenuItem(ctx context.Context, messID, actorID, item string) error {
	if _, err := s.requireAdmin(ctx, messID, actorID); err != nil {
		return err
	}
	if strings.TrimSpace(item) == "" {
		return fmt.Errorf("%w: empty menu item", core.ErrValidation)
	}
	return s.store.AddMenuItem(ctx, messID, item)
}

// RemoveMenuItem removes an item from the mess menu. Admin only.
func (s *Service) RemoveMenuItem(ctx context.Context, messID, actorID, item string) error {
	if _, err := s.requireAdmin(ctx, messID, actorID); err != nil {
		return err
	}
	return s.store.RemoveMenuItem(ctx, messID, item)
}

func (s *Service) requireAdmin(ctx context.Context, messID, actorID string) (*core.Mess, error) {
	m, err := s.store.GetMess(ctx, messID)
	if err != nil {
		return nil, err
	}
	if !m.IsAdmin(actorID) {
		return nil, fmt.Errorf("%w: actor %s is not the mess admin", core.ErrUnauthorized, actorID)
	}
	return m, nil
}
