// Package memory keeps ledger state in process. It backs STORAGE=memory and the service tests.
package memory

import (
	"sync"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
)

// Store is the shared state behind the in-memory repositories.
type Store struct {
	// writeMu serializes writers, including whole transactions.
	writeMu sync.Mutex
	mu      sync.RWMutex
	data    *state

	directoryMu sync.RWMutex
	principals  map[string]domain.Principal
	accounts    map[string]domain.Account
}

type state struct {
	entries map[string]*domain.JournalEntry
}

func (s *state) clone() *state {
	c := &state{entries: make(map[string]*domain.JournalEntry, len(s.entries))}
	for id, e := range s.entries {
		c.entries[id] = e.Clone()
	}
	return c
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		data:       &state{entries: map[string]*domain.JournalEntry{}},
		principals: map[string]domain.Principal{},
		accounts:   map[string]domain.Account{},
	}
}

// NewRepositoryProvider wires the in-memory repositories over store.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		EntryRepo:      NewJournalEntryRepository(store),
		PermissionRepo: NewPermissionRepository(store),
		Accounts:       NewAccountDirectory(store),
	}
}

func scopedKey(workplaceID, id string) string {
	return workplaceID + "/" + id
}
