package memory

import (
	"context"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
)

// PermissionRepository keeps grants in the store.
type PermissionRepository struct {
	store *Store
}

func NewPermissionRepository(store *Store) *PermissionRepository {
	return &PermissionRepository{store: store}
}

var _ portsrepo.PermissionRepository = (*PermissionRepository)(nil)

func (r *PermissionRepository) FindPrincipal(ctx context.Context, workplaceID, userID string) (*domain.Principal, error) {
	r.store.directoryMu.RLock()
	defer r.store.directoryMu.RUnlock()
	p, ok := r.store.principals[scopedKey(workplaceID, userID)]
	if !ok {
		return nil, apperrors.NewNotFoundError("grant for user " + userID)
	}
	return &p, nil
}

func (r *PermissionRepository) SavePrincipal(ctx context.Context, principal domain.Principal) error {
	caps := make(domain.CapabilitySet, len(principal.Capabilities))
	for a := range principal.Capabilities {
		caps[a] = struct{}{}
	}
	principal.Capabilities = caps
	if principal.MaxApprovalAmount != nil {
		ceiling := *principal.MaxApprovalAmount
		principal.MaxApprovalAmount = &ceiling
	}

	r.store.directoryMu.Lock()
	defer r.store.directoryMu.Unlock()
	r.store.principals[scopedKey(principal.WorkplaceID, principal.UserID)] = principal
	return nil
}
