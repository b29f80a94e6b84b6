package domain

import (
	"fmt"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
)

// BatchOperation is the transition applied to every item of a batch.
type BatchOperation string

const (
	BatchApprove BatchOperation = "approve"
	BatchPost    BatchOperation = "post"
	BatchReverse BatchOperation = "reverse"
	BatchImport  BatchOperation = "importFromRows"
)

// ParseBatchOperation validates a client-supplied operation name.
func ParseBatchOperation(v string) (BatchOperation, error) {
	switch op := BatchOperation(v); op {
	case BatchApprove, BatchPost, BatchReverse, BatchImport:
		return op, nil
	}
	return "", fmt.Errorf("%w: unknown batch operation %q", apperrors.ErrValidationFailed, v)
}

// EligibleStatus is the only state an entry may be in to be attempted by op.
func (op BatchOperation) EligibleStatus() (EntryStatus, bool) {
	switch op {
	case BatchApprove:
		return PendingApproval, true
	case BatchPost:
		return Draft, true
	case BatchReverse:
		return Posted, true
	}
	return "", false
}

// EligibleForBatch filters entries down to those op may be attempted on, keeping order.
func EligibleForBatch(op BatchOperation, entries []*JournalEntry) []*JournalEntry {
	status, ok := op.EligibleStatus()
	if !ok {
		return nil
	}
	eligible := make([]*JournalEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil && e.Status == status {
			eligible = append(eligible, e)
		}
	}
	return eligible
}

// SelectCandidates picks the submitted ids out of the eligible set in submission order.
// Ids that are unknown, ineligible or repeated are returned as excluded.
func SelectCandidates(submittedIDs []string, eligible []*JournalEntry) (selected []*JournalEntry, excluded []string) {
	byID := make(map[string]*JournalEntry, len(eligible))
	for _, e := range eligible {
		byID[e.EntryID] = e
	}
	seen := make(map[string]struct{}, len(submittedIDs))
	for _, id := range submittedIDs {
		if _, dup := seen[id]; dup {
			excluded = append(excluded, id)
			continue
		}
		seen[id] = struct{}{}
		if e, ok := byID[id]; ok {
			selected = append(selected, e)
		} else {
			excluded = append(excluded, id)
		}
	}
	return selected, excluded
}

// BatchFailure is one item that was attempted and failed. Import failures carry the
// grouping key and the first offending row instead of an entry id when no entry was created.
type BatchFailure struct {
	EntryID   string         `json:"entryID,omitempty"`
	GroupKey  string         `json:"groupKey,omitempty"`
	ErrorKind apperrors.Kind `json:"errorKind"`
	Message   string         `json:"message"`
	Row       int            `json:"row,omitempty"`
}

// BatchSummary holds the counts of a batch run.
type BatchSummary struct {
	Total                      int `json:"total"`
	Successful                 int `json:"successful"`
	Failed                     int `json:"failed"`
	Excluded                   int `json:"excluded"`
	Cancelled                  int `json:"cancelled"`
	InventoryMovementsReversed int `json:"inventoryMovementsReversed,omitempty"`
	StockRestored              int `json:"stockRestored,omitempty"`
	EntriesCreated             int `json:"entriesCreated,omitempty"`
}

// BatchOperationResult is the aggregate outcome of one batch call. It is not persisted.
type BatchOperationResult struct {
	Operation BatchOperation `json:"operation"`
	Successes []string       `json:"successes"`
	Failures  []BatchFailure `json:"failures"`
	Cancelled []string       `json:"cancelled"`
	Excluded  []string       `json:"excluded"`
	Summary   BatchSummary   `json:"summary"`
}

// NewBatchResult returns an empty result for op.
func NewBatchResult(op BatchOperation) *BatchOperationResult {
	return &BatchOperationResult{
		Operation: op,
		Successes: []string{},
		Failures:  []BatchFailure{},
		Cancelled: []string{},
		Excluded:  []string{},
	}
}

// AddFailure records err against entryID, classifying it by kind.
func (r *BatchOperationResult) AddFailure(entryID string, err error) {
	r.Failures = append(r.Failures, BatchFailure{
		EntryID:   entryID,
		ErrorKind: apperrors.KindOf(err),
		Message:   err.Error(),
		Row:       apperrors.RowOf(err),
	})
}

// AddGroupFailure records an import group failure at row. Row numbers already carried
// by err take precedence.
func (r *BatchOperationResult) AddGroupFailure(groupKey, entryID string, row int, err error) {
	if errRow := apperrors.RowOf(err); errRow > 0 {
		row = errRow
	}
	r.Failures = append(r.Failures, BatchFailure{
		EntryID:   entryID,
		GroupKey:  groupKey,
		ErrorKind: apperrors.KindOf(err),
		Message:   err.Error(),
		Row:       row,
	})
}

// Finalize derives the summary counts. Total counts attempted items only.
func (r *BatchOperationResult) Finalize() {
	r.Summary.Successful = len(r.Successes)
	r.Summary.Failed = len(r.Failures)
	r.Summary.Total = r.Summary.Successful + r.Summary.Failed
	r.Summary.Excluded = len(r.Excluded)
	r.Summary.Cancelled = len(r.Cancelled)
}
