package pgsql

import (
	"context"
	"net/http"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/journal_ledger/internal/models"
	"github.com/SscSPs/journal_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxAccountDirectory reads the chart of accounts.
type PgxAccountDirectory struct {
	BaseRepository
}

func newPgxAccountDirectory(pool *pgxpool.Pool) portsrepo.AccountDirectory {
	return &PgxAccountDirectory{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountDirectory = (*PgxAccountDirectory)(nil)

// LookupAccounts returns the active accounts among ids.
func (r *PgxAccountDirectory) LookupAccounts(ctx context.Context, workplaceID string, ids []string) (map[string]domain.Account, error) {
	accounts := make(map[string]domain.Account, len(ids))
	if len(ids) == 0 {
		return accounts, nil
	}

	query := `
		SELECT account_id, workplace_id, name, account_type, is_active
		FROM accounts
		WHERE workplace_id = $1 AND account_id = ANY($2) AND is_active = TRUE;
	`
	rows, err := r.Pool.Query(ctx, query, workplaceID, ids)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to look up accounts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Account
		if err := rows.Scan(&m.AccountID, &m.WorkplaceID, &m.Name, &m.AccountType, &m.IsActive); err != nil {
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan account row", err)
		}
		accounts[m.AccountID] = mapping.ToDomainAccount(m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "error iterating account rows", err)
	}
	return accounts, nil
}
