package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the directory, the engine or the
// stores wraps exactly one of these, so callers classify with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrNoChange     = errors.New("no change")
	ErrConflict     = errors.New("concurrency conflict")
)

// Specific validation failures, all classified under ErrValidation.
var (
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrValidation)
	ErrEmptyReason      = fmt.Errorf("%w: empty reason", ErrValidation)
	ErrEmptyName        = fmt.Errorf("%w: empty name", ErrValidation)
	ErrMissingID        = fmt.Errorf("%w: missing id", ErrValidation)
)

// Specific state failures, all classified under ErrInvalidState.
var (
	ErrNotAMember    = fmt.Errorf("%w: user is not a member of the mess", ErrInvalidState)
	ErrAlreadyMember = fmt.Errorf("%w: user is already a member of the mess", ErrInvalidState)
	ErrAdminRemoval  = fmt.Errorf("%w: transfer admin before removing the current admin", ErrInvalidState)
	ErrMessHasLedger = fmt.Errorf("%w: mess still has transactions", ErrInvalidState)
	ErrDuplicateMess = fmt.Errorf("%w: mess with this name already exists for admin", ErrInvalidState)
)
