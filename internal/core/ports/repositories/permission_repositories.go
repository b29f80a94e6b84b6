package repositories

import (
	"context"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
)

// PermissionRepository resolves what a user may do within a workplace.
type PermissionRepository interface {
	// FindPrincipal returns the user's capabilities and approval ceiling. A user without
	// a grant in the workplace is apperrors.ErrNotFound.
	FindPrincipal(ctx context.Context, workplaceID, userID string) (*domain.Principal, error)

	// SavePrincipal creates or replaces a user's grant.
	SavePrincipal(ctx context.Context, principal domain.Principal) error
}

// AccountDirectory looks up chart-of-accounts entries. Only existence is enforced.
type AccountDirectory interface {
	// LookupAccounts returns the known accounts among ids, keyed by account id.
	LookupAccounts(ctx context.Context, workplaceID string, ids []string) (map[string]domain.Account, error)
}
