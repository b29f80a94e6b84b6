package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
)

const (
	defaultBatchConcurrency = 4
	defaultBatchMaxItems    = 500
)

// batchService applies one operation to many entries, each through the single-entry services.
type batchService struct {
	BaseService
	entryRepo   portsrepo.JournalEntryReader
	accounts    portsrepo.AccountDirectory
	entries     portssvc.JournalEntrySvcFacade
	approvals   portssvc.ApprovalSvcFacade
	reversals   portssvc.ReversalSvc
	concurrency int
	maxItems    int
}

// BatchLimits bounds a batch call.
type BatchLimits struct {
	Concurrency int
	MaxItems    int
}

// NewBatchService creates a new BatchService on top of the single-entry services.
func NewBatchService(entryRepo portsrepo.JournalEntryReader, permissions portsrepo.PermissionRepository, accounts portsrepo.AccountDirectory,
	entries portssvc.JournalEntrySvcFacade, approvals portssvc.ApprovalSvcFacade, reversals portssvc.ReversalSvc,
	limits BatchLimits, opts ...BaseOption) portssvc.BatchSvcFacade {
	if limits.Concurrency <= 0 {
		limits.Concurrency = defaultBatchConcurrency
	}
	if limits.MaxItems <= 0 {
		limits.MaxItems = defaultBatchMaxItems
	}
	return &batchService{
		BaseService: newBaseService(permissions, opts...),
		entryRepo:   entryRepo,
		accounts:    accounts,
		entries:     entries,
		approvals:   approvals,
		reversals:   reversals,
		concurrency: limits.Concurrency,
		maxItems:    limits.MaxItems,
	}
}

var _ portssvc.BatchSvcFacade = (*batchService)(nil)

// itemResult is the outcome of one batch item. started is false for items that were
// never attempted because the caller went away.
type itemResult struct {
	started   bool
	entryID   string
	row       int
	created   bool
	inventory domain.InventoryReversal
	err       error
}

// runItems processes keys concurrently and returns results in key order. An item that has
// started runs to completion even if ctx is cancelled meanwhile; committed work is never undone.
func (s *batchService) runItems(ctx context.Context, keys []string, fn func(ctx context.Context, key string) itemResult) []itemResult {
	results := make([]itemResult, len(keys))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i, key := range keys {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					s.LogError(ctx, fmt.Errorf("panic: %v", r), "Batch item panicked", slog.String("item", key))
					results[i] = itemResult{started: true, err: fmt.Errorf("%w: batch item panicked: %v", apperrors.ErrInternal, r)}
				}
			}()
			res := fn(context.WithoutCancel(ctx), key)
			res.started = true
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// RunBatch applies approve, post or reverse to the submitted entries.
func (s *batchService) RunBatch(ctx context.Context, workplaceID string, req dto.BatchRequest, userID string) (*domain.BatchOperationResult, error) {
	op, err := domain.ParseBatchOperation(req.Operation)
	if err != nil {
		return nil, err
	}
	if op == domain.BatchImport {
		return nil, fmt.Errorf("%w: %s runs through the import endpoint", apperrors.ErrValidationFailed, op)
	}
	submitted := trimIDs(req.EntryIDs)
	if len(submitted) == 0 {
		return nil, fmt.Errorf("%w: no entries submitted", apperrors.ErrValidationFailed)
	}
	if len(submitted) > s.maxItems {
		return nil, fmt.Errorf("%w: batch of %d entries exceeds the limit of %d", apperrors.ErrValidationFailed, len(submitted), s.maxItems)
	}
	reason := strings.TrimSpace(req.Reason)
	if op == domain.BatchReverse && reason == "" {
		return nil, apperrors.ErrReasonRequired
	}

	// 1. Eligibility and selection
	found, err := s.entryRepo.FindEntriesByIDs(ctx, workplaceID, dedupeIDs(submitted))
	if err != nil {
		s.LogError(ctx, err, "Failed to load batch entries", slog.String("workplace_id", workplaceID))
		return nil, err
	}
	eligible := domain.EligibleForBatch(op, found)
	if op == domain.BatchApprove {
		p, err := s.principal(ctx, workplaceID, userID)
		if err != nil {
			return nil, err
		}
		eligible = withinCeiling(p, eligible)
	}
	selected, excluded := domain.SelectCandidates(submitted, eligible)

	keys := make([]string, len(selected))
	byID := make(map[string]*domain.JournalEntry, len(selected))
	for i, e := range selected {
		keys[i] = e.EntryID
		byID[e.EntryID] = e
	}

	// 2. Per-item work through the single-entry services
	var fn func(ctx context.Context, entryID string) itemResult
	switch op {
	case domain.BatchPost:
		fn = func(ctx context.Context, entryID string) itemResult {
			_, err := s.entries.PostEntry(ctx, workplaceID, entryID, userID)
			return itemResult{entryID: entryID, err: err}
		}
	case domain.BatchReverse:
		fn = func(ctx context.Context, entryID string) itemResult {
			res, err := s.reversals.Reverse(ctx, workplaceID, entryID, dto.ReverseEntryRequest{Reason: reason, EffectiveDate: req.EffectiveDate}, userID)
			if err != nil {
				return itemResult{entryID: entryID, err: err}
			}
			return itemResult{entryID: entryID, inventory: domain.InventoryReversal{
				MovementsReversed: res.InventoryMovementsReversed,
				StockRestored:     res.StockRestored,
			}}
		}
	case domain.BatchApprove:
		fn = func(ctx context.Context, entryID string) itemResult {
			approvalID := callerPendingApproval(byID[entryID], userID)
			if approvalID == "" {
				return itemResult{entryID: entryID, err: fmt.Errorf("%w: no pending approval for user %s on entry %s", apperrors.ErrPermissionDenied, userID, entryID)}
			}
			_, err := s.approvals.Resolve(ctx, workplaceID, approvalID, dto.ResolveApprovalRequest{Outcome: domain.OutcomeApproved, Comments: req.Comments}, userID)
			return itemResult{entryID: entryID, err: err}
		}
	}

	results := s.runItems(ctx, keys, fn)

	// 3. Aggregate in submission order
	batch := domain.NewBatchResult(op)
	batch.Excluded = append(batch.Excluded, excluded...)
	for i, res := range results {
		switch {
		case !res.started:
			batch.Cancelled = append(batch.Cancelled, keys[i])
		case res.err != nil:
			batch.AddFailure(keys[i], res.err)
		default:
			batch.Successes = append(batch.Successes, keys[i])
			batch.Summary.InventoryMovementsReversed += res.inventory.MovementsReversed
			batch.Summary.StockRestored += res.inventory.StockRestored
		}
	}
	batch.Finalize()

	s.LogInfo(ctx, "Batch finished",
		slog.String("operation", string(op)),
		slog.Int("successful", batch.Summary.Successful),
		slog.Int("failed", batch.Summary.Failed),
		slog.Int("excluded", batch.Summary.Excluded),
		slog.Int("cancelled", batch.Summary.Cancelled))
	return batch, nil
}

// callerPendingApproval returns the id of the caller's open record on entry, if any.
func callerPendingApproval(entry *domain.JournalEntry, userID string) string {
	if entry == nil {
		return ""
	}
	for _, a := range entry.PendingApprovals() {
		if a.Approver == userID {
			return a.ApprovalID
		}
	}
	return ""
}

// trimIDs strips surrounding whitespace and drops blank ids. Repeats are kept so that
// selection can report them as excluded.
func trimIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// withinCeiling keeps the entries p may approve by amount.
func withinCeiling(p domain.Principal, entries []*domain.JournalEntry) []*domain.JournalEntry {
	kept := make([]*domain.JournalEntry, 0, len(entries))
	for _, e := range entries {
		if domain.WithinApprovalCeiling(p, e.AbsoluteTotal()) {
			kept = append(kept, e)
		}
	}
	return kept
}
