package domain

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// Account is the chart-of-accounts view the ledger needs: existence, name and type.
// The chart itself is owned elsewhere; lines only reference it.
type Account struct {
	AccountID   string      `json:"accountID"`
	WorkplaceID string      `json:"workplaceID"`
	Name        string      `json:"name"`
	AccountType AccountType `json:"accountType"`
	IsActive    bool        `json:"isActive"`
}
