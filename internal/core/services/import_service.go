package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/SscSPs/journal_ledger/internal/utils/accounting"
	"github.com/SscSPs/journal_ledger/internal/utils/csvimport"
)

// RunImport creates one draft per group of CSV rows. Groups succeed or fail independently;
// a failed group never affects another.
func (s *batchService) RunImport(ctx context.Context, workplaceID string, r io.Reader, opts dto.ImportOptions, userID string) (*domain.BatchOperationResult, error) {
	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return nil, err
	}
	if !domain.Authorize(p, domain.ActionCreate, nil) {
		return nil, fmt.Errorf("%w: user %s may not create entries", apperrors.ErrPermissionDenied, userID)
	}

	// 1. Parse the file; only problems with the file as a whole fail the call
	rows, err := csvimport.ParseJournalRows(r)
	if err != nil {
		if !errors.Is(err, apperrors.ErrValidationFailed) {
			err = fmt.Errorf("%w: %v", apperrors.ErrValidationFailed, err)
		}
		return nil, err
	}
	groups := csvimport.GroupRows(rows)
	if len(groups) > s.maxItems {
		return nil, fmt.Errorf("%w: import of %d entries exceeds the limit of %d", apperrors.ErrValidationFailed, len(groups), s.maxItems)
	}

	// 2. Resolve every referenced account in one lookup
	known, err := s.lookupImportAccounts(ctx, workplaceID, rows)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(groups))
	byKey := make(map[string]csvimport.RowGroup, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
		byKey[g.Key] = g
	}

	// 3. One item per group
	results := s.runItems(ctx, keys, func(ctx context.Context, key string) itemResult {
		return s.importGroup(ctx, workplaceID, byKey[key], known, opts, userID)
	})

	batch := domain.NewBatchResult(domain.BatchImport)
	for i, res := range results {
		if res.created {
			batch.Summary.EntriesCreated++
		}
		switch {
		case !res.started:
			batch.Cancelled = append(batch.Cancelled, keys[i])
		case res.err != nil:
			batch.AddGroupFailure(keys[i], res.entryID, res.row, res.err)
		default:
			batch.Successes = append(batch.Successes, res.entryID)
		}
	}
	batch.Finalize()

	s.LogInfo(ctx, "Import finished",
		slog.String("workplace_id", workplaceID),
		slog.Int("rows", len(rows)),
		slog.Int("groups", len(groups)),
		slog.Int("entries_created", batch.Summary.EntriesCreated),
		slog.Int("failed", batch.Summary.Failed))
	return batch, nil
}

func (s *batchService) lookupImportAccounts(ctx context.Context, workplaceID string, rows []csvimport.LineRow) (map[string]domain.Account, error) {
	if s.accounts == nil {
		return nil, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Err == nil && r.Line.AccountID != "" {
			ids = append(ids, r.Line.AccountID)
		}
	}
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return map[string]domain.Account{}, nil
	}
	known, err := s.accounts.LookupAccounts(ctx, workplaceID, ids)
	if err != nil {
		s.LogError(ctx, err, "Failed to look up import accounts", slog.String("workplace_id", workplaceID))
		return nil, err
	}
	return known, nil
}

// importGroup validates and creates the entry for one group of rows.
func (s *batchService) importGroup(ctx context.Context, workplaceID string, g csvimport.RowGroup, known map[string]domain.Account, opts dto.ImportOptions, userID string) itemResult {
	if err := g.FirstError(); err != nil {
		return itemResult{row: g.FirstRow, err: err}
	}
	if known != nil {
		for _, r := range g.Rows {
			if _, ok := known[r.Line.AccountID]; !ok {
				return itemResult{row: r.Row, err: apperrors.NewRowError(r.Row, csvimport.ColAccountID,
					fmt.Errorf("account %s does not exist", r.Line.AccountID))}
			}
		}
	}

	lines := g.Lines()
	if result := accounting.ValidateLines(lines); !result.IsBalanced {
		return itemResult{row: g.FirstRow, err: domain.NewValidationError(result)}
	}

	head := g.Rows[0]
	req := dto.CreateEntryRequest{
		EntryDate: head.EntryDate,
		Reference: head.Reference,
		Memo:      head.Memo,
		Lines:     make([]dto.JournalLineRequest, len(lines)),
	}
	if head.EntryTypeID != "" {
		entryType := head.EntryTypeID
		req.EntryTypeID = &entryType
	}
	for i, l := range lines {
		req.Lines[i] = dto.JournalLineRequest{
			AccountID:  l.AccountID,
			Debit:      l.Debit,
			Credit:     l.Credit,
			Memo:       l.Memo,
			Department: l.Department,
			Project:    l.Project,
			Location:   l.Location,
		}
	}

	entry, err := s.entries.CreateEntry(ctx, workplaceID, req, userID)
	if err != nil {
		return itemResult{row: g.FirstRow, err: err}
	}
	if !opts.PostImmediately {
		return itemResult{entryID: entry.EntryID, created: true}
	}
	// The draft stays when posting fails; the failure names it so it can be fixed in place.
	if _, err := s.entries.PostEntry(ctx, workplaceID, entry.EntryID, userID); err != nil {
		return itemResult{entryID: entry.EntryID, row: g.FirstRow, created: true, err: err}
	}
	return itemResult{entryID: entry.EntryID, created: true}
}
