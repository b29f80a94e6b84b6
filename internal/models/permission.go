package models

import "github.com/shopspring/decimal"

// LedgerGrant is a row of ledger_grants: what one user may do in one workplace.
type LedgerGrant struct {
	WorkplaceID       string           `db:"workplace_id"`
	UserID            string           `db:"user_id"`
	Capabilities      []string         `db:"capabilities"`
	MaxApprovalAmount *decimal.Decimal `db:"max_approval_amount"`
}
