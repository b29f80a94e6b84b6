package memory

import (
	"context"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
)

// AccountDirectory is a fixed chart of accounts.
type AccountDirectory struct {
	store *Store
}

func NewAccountDirectory(store *Store) *AccountDirectory {
	return &AccountDirectory{store: store}
}

var _ portsrepo.AccountDirectory = (*AccountDirectory)(nil)

// SaveAccount adds or replaces an account.
func (d *AccountDirectory) SaveAccount(account domain.Account) {
	d.store.directoryMu.Lock()
	defer d.store.directoryMu.Unlock()
	d.store.accounts[scopedKey(account.WorkplaceID, account.AccountID)] = account
}

// LookupAccounts returns the active accounts among ids.
func (d *AccountDirectory) LookupAccounts(ctx context.Context, workplaceID string, ids []string) (map[string]domain.Account, error) {
	d.store.directoryMu.RLock()
	defer d.store.directoryMu.RUnlock()
	found := make(map[string]domain.Account, len(ids))
	for _, id := range ids {
		if a, ok := d.store.accounts[scopedKey(workplaceID, id)]; ok && a.IsActive {
			found[id] = a
		}
	}
	return found, nil
}
