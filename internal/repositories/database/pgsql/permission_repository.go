package pgsql

import (
	"context"
	"errors"
	"net/http"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/journal_ledger/internal/models"
	"github.com/SscSPs/journal_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxPermissionRepository reads and writes ledger grants.
type PgxPermissionRepository struct {
	BaseRepository
}

func newPgxPermissionRepository(pool *pgxpool.Pool) portsrepo.PermissionRepository {
	return &PgxPermissionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PermissionRepository = (*PgxPermissionRepository)(nil)

// FindPrincipal loads the grant of userID in workplaceID.
func (r *PgxPermissionRepository) FindPrincipal(ctx context.Context, workplaceID, userID string) (*domain.Principal, error) {
	query := `
		SELECT workplace_id, user_id, capabilities, max_approval_amount
		FROM ledger_grants
		WHERE workplace_id = $1 AND user_id = $2;
	`
	var m models.LedgerGrant
	var ceiling decimal.NullDecimal
	err := r.Pool.QueryRow(ctx, query, workplaceID, userID).Scan(
		&m.WorkplaceID,
		&m.UserID,
		&m.Capabilities,
		&ceiling,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("grant for user " + userID)
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to find grant for user "+userID, err)
	}
	if ceiling.Valid {
		m.MaxApprovalAmount = &ceiling.Decimal
	}

	p, err := mapping.ToDomainPrincipal(m)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "invalid grant", err)
	}
	return &p, nil
}

// SavePrincipal creates or replaces a grant.
func (r *PgxPermissionRepository) SavePrincipal(ctx context.Context, principal domain.Principal) error {
	m := mapping.ToModelLedgerGrant(principal)
	query := `
		INSERT INTO ledger_grants (workplace_id, user_id, capabilities, max_approval_amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workplace_id, user_id) DO UPDATE
		SET capabilities = EXCLUDED.capabilities, max_approval_amount = EXCLUDED.max_approval_amount;
	`
	var ceiling decimal.NullDecimal
	if m.MaxApprovalAmount != nil {
		ceiling = decimal.NewNullDecimal(*m.MaxApprovalAmount)
	}
	if _, err := r.Pool.Exec(ctx, query, m.WorkplaceID, m.UserID, m.Capabilities, ceiling); err != nil {
		return apperrors.NewAppError(http.StatusInternalServerError, "failed to save grant for user "+m.UserID, err)
	}
	return nil
}
