package dto

import (
	"time"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
)

// ReverseEntryRequest carries the reversal reason and optional effective date.
type ReverseEntryRequest struct {
	Reason        string     `json:"reason" binding:"max=500"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
}

// ReversalResponse pairs the reversed original with its mirror entry.
type ReversalResponse struct {
	Original                   JournalEntryResponse `json:"original"`
	Reversal                   JournalEntryResponse `json:"reversal"`
	InventoryMovementsReversed int                  `json:"inventoryMovementsReversed"`
	StockRestored              int                  `json:"stockRestored"`
}

// ToReversalResponse converts a domain.ReversalResult.
func ToReversalResponse(r *domain.ReversalResult) ReversalResponse {
	return ReversalResponse{
		Original:                   ToJournalEntryResponse(r.Original),
		Reversal:                   ToJournalEntryResponse(r.Reversal),
		InventoryMovementsReversed: r.InventoryMovementsReversed,
		StockRestored:              r.StockRestored,
	}
}
