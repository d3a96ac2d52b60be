package ledger

import (
	"fmt"

	"messbook/internal/core"
)

// Role is the minimum standing an actor needs for an operation.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole converts a config string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleMember:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", core.ErrValidation, s)
	}
}

// Operation names a ledger mutation for the policy table.
type Operation string

const (
	OpCreateIncome  Operation = "create_income"
	OpUpdateIncome  Operation = "update_income"
	OpDeleteIncome  Operation = "delete_income"
	OpCreateExpense Operation = "create_expense"
	OpUpdateExpense Operation = "update_expense"
	OpDeleteExpense Operation = "delete_expense"
)

// Policy maps every operation to the role it requires. The table is
// evaluated once per mutation, before any write.
type Policy map[Operation]Role

// NewPolicy builds the policy table. Income operations always require the
// mess admin; the standing required to record, change or remove expenses
// is a product decision and therefore configurable.
func NewPolicy(expenseRole Role) Policy {
	return Policy{
		OpCreateIncome:  RoleAdmin,
		OpUpdateIncome:  RoleAdmin,
		OpDeleteIncome:  RoleAdmin,
		OpCreateExpense: expenseRole,
		OpUpdateExpense: expenseRole,
		OpDeleteExpense: expenseRole,
	}
}

// Authorize checks the actor against the role the operation requires.
func (p Policy) Authorize(m *core.Mess, actorID string, op Operation) error {
	role, ok := p[op]
	if !ok {
		role = RoleAdmin
	}
	switch role {
	case RoleMember:
		if !m.IsMember(actorID) {
			return fmt.Errorf("%w: actor %s is not a member of mess %s", core.ErrUnauthorized, actorID, m.ID)
		}
	default:
		if !m.IsAdmin(actorID) {
			return fmt.Errorf("%w: actor %s is not the admin of mess %s", core.ErrUnauthorized, actorID, m.ID)
		}
	}
	return nil
}
