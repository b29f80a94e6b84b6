package pgsql

import (
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the Postgres repositories.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		EntryRepo:      newPgxJournalEntryRepository(dbPool),
		PermissionRepo: newPgxPermissionRepository(dbPool),
		Accounts:       newPgxAccountDirectory(dbPool),
	}
}
