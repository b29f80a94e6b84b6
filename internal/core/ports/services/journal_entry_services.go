package services

import (
	"context"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/dto"
)

// JournalEntryReaderSvc defines read operations for journal entries.
type JournalEntryReaderSvc interface {
	// GetEntry retrieves an entry the user is allowed to view.
	GetEntry(ctx context.Context, workplaceID, entryID, userID string) (*domain.JournalEntry, error)

	// ListEntries retrieves a page of entries visible to the user.
	ListEntries(ctx context.Context, workplaceID, userID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error)

	// ValidateLines runs the Balance Validator without touching any entry.
	ValidateLines(ctx context.Context, req dto.ValidateLinesRequest) domain.ValidationResult
}

// JournalEntryWriterSvc defines the draft lifecycle operations.
type JournalEntryWriterSvc interface {
	// CreateEntry creates a new draft.
	CreateEntry(ctx context.Context, workplaceID string, req dto.CreateEntryRequest, userID string) (*domain.JournalEntry, error)

	// UpdateEntry saves edits to a draft.
	UpdateEntry(ctx context.Context, workplaceID, entryID string, req dto.UpdateEntryRequest, userID string) (*domain.JournalEntry, error)

	// DeleteEntry removes a draft.
	DeleteEntry(ctx context.Context, workplaceID, entryID, userID string) error

	// PostEntry posts a balanced draft directly.
	PostEntry(ctx context.Context, workplaceID, entryID, userID string) (*domain.JournalEntry, error)
}

// JournalEntrySvcFacade combines all journal entry service interfaces.
type JournalEntrySvcFacade interface {
	JournalEntryReaderSvc
	JournalEntryWriterSvc
}
