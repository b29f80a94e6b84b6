package repositories

import (
	"context"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
)

// EntryFilter narrows an entry listing.
type EntryFilter struct {
	Status *domain.EntryStatus
	// CreatedBy restricts the listing to one author; empty means everyone.
	CreatedBy string
}

// JournalEntryReader defines read operations for journal entries.
type JournalEntryReader interface {
	// FindEntryByID loads an entry with its lines and approval chain.
	FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// FindEntriesByIDs loads the entries of a workplace with the given ids. Unknown ids are omitted.
	FindEntriesByIDs(ctx context.Context, workplaceID string, entryIDs []string) ([]*domain.JournalEntry, error)

	// ListEntriesByWorkplace returns a page of entries, newest entry date first, and the token for the next page.
	ListEntriesByWorkplace(ctx context.Context, workplaceID string, filter EntryFilter, limit int, nextToken *string) ([]domain.JournalEntry, *string, error)

	// FindEntryByApprovalID loads the entry that owns the approval record.
	FindEntryByApprovalID(ctx context.Context, approvalID string) (*domain.JournalEntry, error)

	// ListPendingApprovals returns the pending approval records assigned to approverID.
	ListPendingApprovals(ctx context.Context, workplaceID, approverID string) ([]domain.Approval, error)

	// ReferenceExists reports whether reference is already used in the workplace.
	ReferenceExists(ctx context.Context, workplaceID, reference string) (bool, error)
}

// JournalEntryWriter defines write operations for journal entries. Updates and deletes are
// conditional: they only apply when the stored status and version still match what the
// caller read, and fail with apperrors.ErrConcurrentModification otherwise.
type JournalEntryWriter interface {
	// CreateEntry inserts a new entry with its lines and approvals. A reference clash is apperrors.ErrDuplicate.
	CreateEntry(ctx context.Context, entry domain.JournalEntry) error

	// UpdateEntry persists the header, lines and approval chain and bumps the version.
	UpdateEntry(ctx context.Context, entry domain.JournalEntry, expectedStatus domain.EntryStatus, expectedVersion int64) error

	// DeleteEntry removes a draft.
	DeleteEntry(ctx context.Context, entryID string, expectedStatus domain.EntryStatus, expectedVersion int64) error
}

// JournalEntryRepositoryFacade combines all journal entry repository interfaces.
type JournalEntryRepositoryFacade interface {
	JournalEntryReader
	JournalEntryWriter
}

// JournalEntryRepositoryWithTx extends JournalEntryRepositoryFacade with a unit of work.
type JournalEntryRepositoryWithTx interface {
	JournalEntryRepositoryFacade
	UnitOfWork[JournalEntryRepositoryFacade]
}
