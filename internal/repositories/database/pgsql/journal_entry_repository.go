package pgsql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/journal_ledger/internal/models"
	"github.com/SscSPs/journal_ledger/internal/utils/mapping"
	"github.com/SscSPs/journal_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectEntryFields = `
		entry_id, workplace_id, entry_date, reference, memo, entry_type_id, status,
		reversal_of, reversed_by, reversal_reason, version,
		created_at, created_by, last_updated_at, last_updated_by
	`

	selectLineFields = `
		line_id, entry_id, line_no, account_id, debit, credit, memo, department, project, location
	`

	selectApprovalFields = `
		approval_id, entry_id, round_id, status, requested_by, approver, resolved_by,
		requested_at, resolved_at, comments
	`

	insertEntryQuery = `
		INSERT INTO journal_entries (` + selectEntryFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`

	insertLineQuery = `
		INSERT INTO journal_lines (` + selectLineFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`

	// Resolved approvals are never rewritten; only pending rows may change.
	upsertApprovalQuery = `
		INSERT INTO entry_approvals (` + selectApprovalFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (approval_id) DO UPDATE
		SET status = EXCLUDED.status,
		    resolved_by = EXCLUDED.resolved_by,
		    resolved_at = EXCLUDED.resolved_at,
		    comments = EXCLUDED.comments
		WHERE entry_approvals.status = 'PENDING';
	`

	updateEntryQuery = `
		UPDATE journal_entries
		SET entry_date = $2, reference = $3, memo = $4, entry_type_id = $5, status = $6,
		    reversal_of = $7, reversed_by = $8, reversal_reason = $9, version = $10,
		    last_updated_at = $11, last_updated_by = $12
		WHERE entry_id = $1 AND status = $13 AND version = $14;
	`
)

// PgxJournalEntryRepository stores entries, their lines and approval chains.
type PgxJournalEntryRepository struct {
	BaseRepository
	db   DBTX
	inTx bool
}

// newPgxJournalEntryRepository creates a new repository for journal entries.
func newPgxJournalEntryRepository(pool *pgxpool.Pool) portsrepo.JournalEntryRepositoryWithTx {
	return &PgxJournalEntryRepository{
		BaseRepository: BaseRepository{Pool: pool},
		db:             pool,
	}
}

// Ensure PgxJournalEntryRepository implements portsrepo.JournalEntryRepositoryWithTx
var _ portsrepo.JournalEntryRepositoryWithTx = (*PgxJournalEntryRepository)(nil)

// WithTx runs fn against a copy of the repository bound to one transaction. Nested calls
// reuse the outer transaction.
func (r *PgxJournalEntryRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo portsrepo.JournalEntryRepositoryFacade) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return r.runInTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &PgxJournalEntryRepository{BaseRepository: r.BaseRepository, db: tx, inTx: true})
	})
}

// within runs fn in the current transaction, or a new one when there is none.
func (r *PgxJournalEntryRepository) within(ctx context.Context, fn func(db DBTX) error) error {
	if r.inTx {
		return fn(r.db)
	}
	return r.runInTx(ctx, func(tx pgx.Tx) error { return fn(tx) })
}

func scanEntry(row pgx.Row) (models.JournalEntry, error) {
	var m models.JournalEntry
	err := row.Scan(
		&m.EntryID,
		&m.WorkplaceID,
		&m.EntryDate,
		&m.Reference,
		&m.Memo,
		&m.EntryTypeID,
		&m.Status,
		&m.ReversalOf,
		&m.ReversedBy,
		&m.ReversalReason,
		&m.Version,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// FindEntryByID retrieves an entry with its lines and approvals.
func (r *PgxJournalEntryRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	query := `SELECT ` + selectEntryFields + ` FROM journal_entries WHERE entry_id = $1;`
	header, err := scanEntry(r.db.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("journal entry " + entryID)
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to find journal entry "+entryID, err)
	}

	entries, err := r.withChildren(ctx, []models.JournalEntry{header})
	if err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// FindEntriesByIDs loads the workplace's entries among ids.
func (r *PgxJournalEntryRepository) FindEntriesByIDs(ctx context.Context, workplaceID string, entryIDs []string) ([]*domain.JournalEntry, error) {
	if len(entryIDs) == 0 {
		return []*domain.JournalEntry{}, nil
	}
	query := `SELECT ` + selectEntryFields + ` FROM journal_entries WHERE workplace_id = $1 AND entry_id = ANY($2);`
	headers, err := r.queryEntries(ctx, query, workplaceID, entryIDs)
	if err != nil {
		return nil, err
	}
	entries, err := r.withChildren(ctx, headers)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.JournalEntry, len(entries))
	for i := range entries {
		out[i] = &entries[i]
	}
	return out, nil
}

// ListEntriesByWorkplace pages through entries by entry date, newest first.
func (r *PgxJournalEntryRepository) ListEntriesByWorkplace(ctx context.Context, workplaceID string, filter portsrepo.EntryFilter, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	conditions := []string{"workplace_id = $1"}
	args := []any{workplaceID}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conditions = append(conditions, "created_by = $"+strconv.Itoa(len(args)))
	}
	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(http.StatusBadRequest, "invalid nextToken", err)
		}
		args = append(args, lastDate, lastCreatedAt, lastID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(entry_date, created_at, entry_id) < ($%d, $%d, $%d)", n-2, n-1, n))
	}
	args = append(args, fetchLimit)

	query := `SELECT ` + selectEntryFields + ` FROM journal_entries WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY entry_date DESC, created_at DESC, entry_id DESC LIMIT $` + strconv.Itoa(len(args)) + `;`

	headers, err := r.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}

	var next *string
	if len(headers) > limit {
		last := headers[limit-1]
		token := pagination.EncodeToken(last.EntryDate, last.CreatedAt, last.EntryID)
		next = &token
		headers = headers[:limit]
	}

	entries, err := r.withChildren(ctx, headers)
	if err != nil {
		return nil, nil, err
	}
	return entries, next, nil
}

// FindEntryByApprovalID loads the entry owning the approval record.
func (r *PgxJournalEntryRepository) FindEntryByApprovalID(ctx context.Context, approvalID string) (*domain.JournalEntry, error) {
	var entryID string
	err := r.db.QueryRow(ctx, `SELECT entry_id FROM entry_approvals WHERE approval_id = $1;`, approvalID).Scan(&entryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("approval " + approvalID)
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to find approval "+approvalID, err)
	}
	return r.FindEntryByID(ctx, entryID)
}

// ListPendingApprovals returns the open records assigned to approverID within the workplace.
func (r *PgxJournalEntryRepository) ListPendingApprovals(ctx context.Context, workplaceID, approverID string) ([]domain.Approval, error) {
	query := `
		SELECT a.approval_id, a.entry_id, a.round_id, a.status, a.requested_by, a.approver, a.resolved_by,
		       a.requested_at, a.resolved_at, a.comments
		FROM entry_approvals a
		JOIN journal_entries e ON e.entry_id = a.entry_id
		WHERE e.workplace_id = $1 AND a.approver = $2 AND a.status = 'PENDING'
		ORDER BY a.requested_at;
	`
	approvals, err := r.queryApprovals(ctx, query, workplaceID, approverID)
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainApprovalSlice(approvals), nil
}

// ReferenceExists reports whether reference is taken in the workplace.
func (r *PgxJournalEntryRepository) ReferenceExists(ctx context.Context, workplaceID, reference string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM journal_entries WHERE workplace_id = $1 AND reference = $2);`,
		workplaceID, reference).Scan(&exists)
	if err != nil {
		return false, apperrors.NewAppError(http.StatusInternalServerError, "failed to check reference "+reference, err)
	}
	return exists, nil
}

// CreateEntry inserts the header, lines and approvals in one transaction.
func (r *PgxJournalEntryRepository) CreateEntry(ctx context.Context, entry domain.JournalEntry) error {
	m := mapping.ToModelJournalEntry(entry)
	return r.within(ctx, func(db DBTX) error {
		_, err := db.Exec(ctx, insertEntryQuery,
			m.EntryID,
			m.WorkplaceID,
			m.EntryDate,
			m.Reference,
			m.Memo,
			m.EntryTypeID,
			m.Status,
			m.ReversalOf,
			m.ReversedBy,
			m.ReversalReason,
			m.Version,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: reference %s already exists in workplace", apperrors.ErrDuplicate, m.Reference)
			}
			return apperrors.NewAppError(http.StatusInternalServerError, "failed to insert journal entry "+m.EntryID, err)
		}
		if err := insertLines(ctx, db, entry.Lines); err != nil {
			return err
		}
		return upsertApprovals(ctx, db, entry.Approvals)
	})
}

// UpdateEntry writes the entry if it is still in expectedStatus at expectedVersion.
func (r *PgxJournalEntryRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry, expectedStatus domain.EntryStatus, expectedVersion int64) error {
	m := mapping.ToModelJournalEntry(entry)
	return r.within(ctx, func(db DBTX) error {
		tag, err := db.Exec(ctx, updateEntryQuery,
			m.EntryID,
			m.EntryDate,
			m.Reference,
			m.Memo,
			m.EntryTypeID,
			m.Status,
			m.ReversalOf,
			m.ReversedBy,
			m.ReversalReason,
			m.Version,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
			string(expectedStatus),
			expectedVersion,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: reference %s already exists in workplace", apperrors.ErrDuplicate, m.Reference)
			}
			return apperrors.NewAppError(http.StatusInternalServerError, "failed to update journal entry "+m.EntryID, err)
		}
		if tag.RowsAffected() == 0 {
			return r.conflictOrMissing(ctx, db, m.EntryID)
		}

		// Lines only change while the entry is a draft.
		if expectedStatus == domain.Draft {
			if _, err := db.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id = $1;`, m.EntryID); err != nil {
				return apperrors.NewAppError(http.StatusInternalServerError, "failed to replace lines of journal entry "+m.EntryID, err)
			}
			if err := insertLines(ctx, db, entry.Lines); err != nil {
				return err
			}
		}
		return upsertApprovals(ctx, db, entry.Approvals)
	})
}

// DeleteEntry removes the entry if it is still in expectedStatus at expectedVersion.
func (r *PgxJournalEntryRepository) DeleteEntry(ctx context.Context, entryID string, expectedStatus domain.EntryStatus, expectedVersion int64) error {
	return r.within(ctx, func(db DBTX) error {
		tag, err := db.Exec(ctx,
			`DELETE FROM journal_entries WHERE entry_id = $1 AND status = $2 AND version = $3;`,
			entryID, string(expectedStatus), expectedVersion)
		if err != nil {
			return apperrors.NewAppError(http.StatusInternalServerError, "failed to delete journal entry "+entryID, err)
		}
		if tag.RowsAffected() == 0 {
			return r.conflictOrMissing(ctx, db, entryID)
		}
		return nil
	})
}

// conflictOrMissing explains a conditional write that matched no row.
func (r *PgxJournalEntryRepository) conflictOrMissing(ctx context.Context, db DBTX, entryID string) error {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE entry_id = $1);`, entryID).Scan(&exists); err != nil {
		return apperrors.NewAppError(http.StatusInternalServerError, "failed to check journal entry "+entryID, err)
	}
	if !exists {
		return apperrors.NewNotFoundError("journal entry " + entryID)
	}
	return fmt.Errorf("%w: entry %s changed since it was read", apperrors.ErrConcurrentModification, entryID)
}

func insertLines(ctx context.Context, db DBTX, lines []domain.JournalLine) error {
	for _, l := range lines {
		ml := mapping.ToModelJournalLine(l)
		_, err := db.Exec(ctx, insertLineQuery,
			ml.LineID,
			ml.EntryID,
			ml.LineNo,
			ml.AccountID,
			ml.Debit,
			ml.Credit,
			ml.Memo,
			ml.Department,
			ml.Project,
			ml.Location,
		)
		if err != nil {
			return apperrors.NewAppError(http.StatusInternalServerError, "failed to insert journal line "+ml.LineID, err)
		}
	}
	return nil
}

func upsertApprovals(ctx context.Context, db DBTX, approvals []domain.Approval) error {
	for _, a := range approvals {
		ma := mapping.ToModelApproval(a)
		_, err := db.Exec(ctx, upsertApprovalQuery,
			ma.ApprovalID,
			ma.EntryID,
			ma.RoundID,
			ma.Status,
			ma.RequestedBy,
			ma.Approver,
			ma.ResolvedBy,
			ma.RequestedAt,
			ma.ResolvedAt,
			ma.Comments,
		)
		if err != nil {
			return apperrors.NewAppError(http.StatusInternalServerError, "failed to save approval "+ma.ApprovalID, err)
		}
	}
	return nil
}

func (r *PgxJournalEntryRepository) queryEntries(ctx context.Context, query string, args ...any) ([]models.JournalEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to query journal entries", err)
	}
	defer rows.Close()

	headers := []models.JournalEntry{}
	for rows.Next() {
		m, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan journal entry row", err)
		}
		headers = append(headers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "error iterating journal entry rows", err)
	}
	return headers, nil
}

func (r *PgxJournalEntryRepository) queryApprovals(ctx context.Context, query string, args ...any) ([]models.Approval, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to query approvals", err)
	}
	defer rows.Close()

	approvals := []models.Approval{}
	for rows.Next() {
		var a models.Approval
		if err := rows.Scan(
			&a.ApprovalID,
			&a.EntryID,
			&a.RoundID,
			&a.Status,
			&a.RequestedBy,
			&a.Approver,
			&a.ResolvedBy,
			&a.RequestedAt,
			&a.ResolvedAt,
			&a.Comments,
		); err != nil {
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan approval row", err)
		}
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "error iterating approval rows", err)
	}
	return approvals, nil
}

// withChildren loads lines and approvals for the headers with one query each and
// assembles domain entries in header order.
func (r *PgxJournalEntryRepository) withChildren(ctx context.Context, headers []models.JournalEntry) ([]domain.JournalEntry, error) {
	if len(headers) == 0 {
		return []domain.JournalEntry{}, nil
	}
	ids := make([]string, len(headers))
	for i, h := range headers {
		ids[i] = h.EntryID
	}

	rows, err := r.db.Query(ctx, `SELECT `+selectLineFields+` FROM journal_lines WHERE entry_id = ANY($1) ORDER BY entry_id, line_no;`, ids)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to query journal lines", err)
	}
	linesByEntry := make(map[string][]models.JournalLine, len(headers))
	for rows.Next() {
		var l models.JournalLine
		if err := rows.Scan(
			&l.LineID,
			&l.EntryID,
			&l.LineNo,
			&l.AccountID,
			&l.Debit,
			&l.Credit,
			&l.Memo,
			&l.Department,
			&l.Project,
			&l.Location,
		); err != nil {
			rows.Close()
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan journal line row", err)
		}
		linesByEntry[l.EntryID] = append(linesByEntry[l.EntryID], l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "error iterating journal line rows", err)
	}

	approvals, err := r.queryApprovals(ctx,
		`SELECT `+selectApprovalFields+` FROM entry_approvals WHERE entry_id = ANY($1) ORDER BY requested_at, approval_id;`, ids)
	if err != nil {
		return nil, err
	}
	approvalsByEntry := make(map[string][]models.Approval, len(headers))
	for _, a := range approvals {
		approvalsByEntry[a.EntryID] = append(approvalsByEntry[a.EntryID], a)
	}

	entries := make([]domain.JournalEntry, len(headers))
	for i, h := range headers {
		entries[i] = mapping.ToDomainJournalEntry(h, linesByEntry[h.EntryID], approvalsByEntry[h.EntryID])
	}
	return entries, nil
}
