package models

// Account is the subset of the accounts table the ledger reads.
type Account struct {
	AccountID   string `db:"account_id"`
	WorkplaceID string `db:"workplace_id"`
	Name        string `db:"name"`
	AccountType string `db:"account_type"`
	IsActive    bool   `db:"is_active"`
}
