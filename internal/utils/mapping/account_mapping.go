package mapping

import (
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/models"
)

// ToDomainAccount converts a model Account to a domain Account
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:   m.AccountID,
		WorkplaceID: m.WorkplaceID,
		Name:        m.Name,
		AccountType: domain.AccountType(m.AccountType),
		IsActive:    m.IsActive,
	}
}
