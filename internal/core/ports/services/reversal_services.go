package services

import (
	"context"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/dto"
)

// ReversalSvc reverses posted entries.
type ReversalSvc interface {
	// Reverse creates the mirror entry and marks the original reversed in one unit of work.
	Reverse(ctx context.Context, workplaceID, entryID string, req dto.ReverseEntryRequest, userID string) (*domain.ReversalResult, error)
}
