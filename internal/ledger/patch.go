package ledger

import "github.com/shopspring/decimal"

// IncomePatch carries the fields of an income update. A nil field leaves
// the prior value unchanged; treating blank strings as unset is a transport
// concern and happens before a patch is built.
type IncomePatch struct {
	PayerID     *string
	Description *string
	Amount      *decimal.Decimal
}

// IsEmpty reports whether the patch sets no field at all.
func (p IncomePatch) IsEmpty() bool {
	return p.PayerID == nil && p.Description == nil && p.Amount == nil
}

// ExpensePatch carries the fields of an expense update, with the same
// nil-leaves-unchanged semantics as IncomePatch.
type ExpensePatch struct {
	Reason      *string
	Description *string
	Amount      *decimal.Decimal
}

// IsEmpty reports whether the patch sets no field at all.
func (p ExpensePatch) IsEmpty() bool {
	return p.Reason == nil && p.Description == nil && p.Amount == nil
}
