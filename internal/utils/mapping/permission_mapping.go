package mapping

import (
	"fmt"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/models"
)

// ToModelLedgerGrant converts a principal into its stored grant.
func ToModelLedgerGrant(p domain.Principal) models.LedgerGrant {
	caps := p.Capabilities.List()
	names := make([]string, len(caps))
	for i, a := range caps {
		names[i] = string(a)
	}
	return models.LedgerGrant{
		WorkplaceID:       p.WorkplaceID,
		UserID:            p.UserID,
		Capabilities:      names,
		MaxApprovalAmount: p.MaxApprovalAmount,
	}
}

// ToDomainPrincipal converts a stored grant. Unknown capability names are an error.
func ToDomainPrincipal(m models.LedgerGrant) (domain.Principal, error) {
	actions := make([]domain.Action, 0, len(m.Capabilities))
	for _, name := range m.Capabilities {
		a, err := domain.ParseAction(name)
		if err != nil {
			return domain.Principal{}, fmt.Errorf("grant for user %s: %w", m.UserID, err)
		}
		actions = append(actions, a)
	}
	return domain.Principal{
		UserID:            m.UserID,
		WorkplaceID:       m.WorkplaceID,
		Capabilities:      domain.NewCapabilitySet(actions...),
		MaxApprovalAmount: m.MaxApprovalAmount,
	}, nil
}
