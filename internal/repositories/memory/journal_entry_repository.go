package memory

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/journal_ledger/internal/utils/pagination"
)

// JournalEntryRepository is the in-memory entry store. A repository handed to a WithTx
// callback works on a private copy that replaces the shared state only on success.
type JournalEntryRepository struct {
	store  *Store
	staged *state
}

// NewJournalEntryRepository creates a repository over store.
func NewJournalEntryRepository(store *Store) *JournalEntryRepository {
	return &JournalEntryRepository{store: store}
}

var _ portsrepo.JournalEntryRepositoryWithTx = (*JournalEntryRepository)(nil)

func (r *JournalEntryRepository) read(fn func(st *state)) {
	if r.staged != nil {
		fn(r.staged)
		return
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	fn(r.store.data)
}

// write applies fn to the current state. fn must check everything before it mutates.
func (r *JournalEntryRepository) write(fn func(st *state) error) error {
	if r.staged != nil {
		return fn(r.staged)
	}
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.data)
}

// WithTx runs fn against a snapshot. Nothing fn wrote is visible unless it returns nil.
func (r *JournalEntryRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo portsrepo.JournalEntryRepositoryFacade) error) error {
	if r.staged != nil {
		return fn(ctx, r)
	}
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	r.store.mu.RLock()
	staged := r.store.data.clone()
	r.store.mu.RUnlock()

	if err := fn(ctx, &JournalEntryRepository{store: r.store, staged: staged}); err != nil {
		return err
	}

	r.store.mu.Lock()
	r.store.data = staged
	r.store.mu.Unlock()
	return nil
}

func (r *JournalEntryRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	var found *domain.JournalEntry
	r.read(func(st *state) {
		if e, ok := st.entries[entryID]; ok {
			found = e.Clone()
		}
	})
	if found == nil {
		return nil, apperrors.NewNotFoundError("journal entry " + entryID)
	}
	return found, nil
}

func (r *JournalEntryRepository) FindEntriesByIDs(ctx context.Context, workplaceID string, entryIDs []string) ([]*domain.JournalEntry, error) {
	out := []*domain.JournalEntry{}
	seen := make(map[string]struct{}, len(entryIDs))
	r.read(func(st *state) {
		for _, id := range entryIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if e, ok := st.entries[id]; ok && e.WorkplaceID == workplaceID {
				out = append(out, e.Clone())
			}
		}
	})
	return out, nil
}

func (r *JournalEntryRepository) ListEntriesByWorkplace(ctx context.Context, workplaceID string, filter portsrepo.EntryFilter, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	var hasCursor bool
	var curDate, curCreated time.Time
	var curID string
	if nextToken != nil && *nextToken != "" {
		var err error
		curDate, curCreated, curID, err = pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(http.StatusBadRequest, "invalid nextToken", err)
		}
		hasCursor = true
	}

	var matches []*domain.JournalEntry
	r.read(func(st *state) {
		for _, e := range st.entries {
			if e.WorkplaceID != workplaceID {
				continue
			}
			if filter.Status != nil && e.Status != *filter.Status {
				continue
			}
			if filter.CreatedBy != "" && e.CreatedBy != filter.CreatedBy {
				continue
			}
			if hasCursor && !pagination.After(e.EntryDate, e.CreatedAt, e.EntryID, curDate, curCreated, curID) {
				continue
			}
			matches = append(matches, e.Clone())
		}
	})

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		return pagination.After(b.EntryDate, b.CreatedAt, b.EntryID, a.EntryDate, a.CreatedAt, a.EntryID)
	})

	var next *string
	if len(matches) > limit {
		last := matches[limit-1]
		token := pagination.EncodeToken(last.EntryDate, last.CreatedAt, last.EntryID)
		next = &token
		matches = matches[:limit]
	}

	entries := make([]domain.JournalEntry, len(matches))
	for i, e := range matches {
		entries[i] = *e
	}
	return entries, next, nil
}

func (r *JournalEntryRepository) FindEntryByApprovalID(ctx context.Context, approvalID string) (*domain.JournalEntry, error) {
	var found *domain.JournalEntry
	r.read(func(st *state) {
		for _, e := range st.entries {
			if e.ApprovalByID(approvalID) >= 0 {
				found = e.Clone()
				return
			}
		}
	})
	if found == nil {
		return nil, apperrors.NewNotFoundError("approval " + approvalID)
	}
	return found, nil
}

func (r *JournalEntryRepository) ListPendingApprovals(ctx context.Context, workplaceID, approverID string) ([]domain.Approval, error) {
	pending := []domain.Approval{}
	r.read(func(st *state) {
		for _, e := range st.entries {
			if e.WorkplaceID != workplaceID {
				continue
			}
			for _, a := range e.PendingApprovals() {
				if a.Approver == approverID {
					pending = append(pending, a)
				}
			}
		}
	})
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].RequestedAt.Equal(pending[j].RequestedAt) {
			return pending[i].RequestedAt.Before(pending[j].RequestedAt)
		}
		return pending[i].ApprovalID < pending[j].ApprovalID
	})
	return pending, nil
}

func (r *JournalEntryRepository) ReferenceExists(ctx context.Context, workplaceID, reference string) (bool, error) {
	var exists bool
	r.read(func(st *state) {
		exists = referenceTaken(st, workplaceID, reference, "")
	})
	return exists, nil
}

func referenceTaken(st *state, workplaceID, reference, exceptID string) bool {
	for _, e := range st.entries {
		if e.WorkplaceID == workplaceID && e.Reference == reference && e.EntryID != exceptID {
			return true
		}
	}
	return false
}

func (r *JournalEntryRepository) CreateEntry(ctx context.Context, entry domain.JournalEntry) error {
	return r.write(func(st *state) error {
		if _, ok := st.entries[entry.EntryID]; ok {
			return fmt.Errorf("%w: entry %s already exists", apperrors.ErrDuplicate, entry.EntryID)
		}
		if referenceTaken(st, entry.WorkplaceID, entry.Reference, "") {
			return fmt.Errorf("%w: reference %s already exists in workplace", apperrors.ErrDuplicate, entry.Reference)
		}
		st.entries[entry.EntryID] = entry.Clone()
		return nil
	})
}

func (r *JournalEntryRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry, expectedStatus domain.EntryStatus, expectedVersion int64) error {
	return r.write(func(st *state) error {
		current, err := checkExpected(st, entry.EntryID, expectedStatus, expectedVersion)
		if err != nil {
			return err
		}
		if referenceTaken(st, entry.WorkplaceID, entry.Reference, entry.EntryID) {
			return fmt.Errorf("%w: reference %s already exists in workplace", apperrors.ErrDuplicate, entry.Reference)
		}

		next := entry.Clone()
		// Resolved approval records are never rewritten.
		for _, stored := range current.Approvals {
			if !stored.Status.IsResolved() {
				continue
			}
			if idx := next.ApprovalByID(stored.ApprovalID); idx >= 0 {
				next.Approvals[idx] = stored
			}
		}
		// Lines are frozen outside drafts.
		if expectedStatus != domain.Draft {
			next.Lines = current.Lines
		}
		st.entries[entry.EntryID] = next
		return nil
	})
}

func (r *JournalEntryRepository) DeleteEntry(ctx context.Context, entryID string, expectedStatus domain.EntryStatus, expectedVersion int64) error {
	return r.write(func(st *state) error {
		if _, err := checkExpected(st, entryID, expectedStatus, expectedVersion); err != nil {
			return err
		}
		delete(st.entries, entryID)
		return nil
	})
}

func checkExpected(st *state, entryID string, expectedStatus domain.EntryStatus, expectedVersion int64) (*domain.JournalEntry, error) {
	current, ok := st.entries[entryID]
	if !ok {
		return nil, apperrors.NewNotFoundError("journal entry " + entryID)
	}
	if current.Status != expectedStatus || current.Version != expectedVersion {
		return nil, fmt.Errorf("%w: entry %s changed since it was read", apperrors.ErrConcurrentModification, entryID)
	}
	return current, nil
}
