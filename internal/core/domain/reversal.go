package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// ReversalReferenceSuffix is appended to the original reference.
const ReversalReferenceSuffix = "-REV"

// InventoryReversal is what the inventory collaborator reports back.
type InventoryReversal struct {
	MovementsReversed int `json:"movementsReversed"`
	StockRestored     int `json:"stockRestored"`
}

// ReversalResult is returned once a reversal has committed.
type ReversalResult struct {
	Original                   *JournalEntry `json:"original"`
	Reversal                   *JournalEntry `json:"reversal"`
	InventoryMovementsReversed int           `json:"inventoryMovementsReversed"`
	StockRestored              int           `json:"stockRestored"`
}

// ReversalSpec carries the inputs that are not taken from the original entry.
type ReversalSpec struct {
	EntryID       string
	Reason        string
	EffectiveDate *time.Time
	UserID        string
	Now           time.Time
	// NewLineID generates ids for the mirrored lines.
	NewLineID func() string
}

// BuildReversal derives the mirror entry for a posted original. It does not touch the original.
func BuildReversal(original *JournalEntry, spec ReversalSpec) (*JournalEntry, error) {
	if original.Status == Reversed || original.ReversedBy != nil {
		return nil, fmt.Errorf("%w: entry %s was reversed by another entry", apperrors.ErrAlreadyReversed, original.EntryID)
	}
	if original.Status != Posted {
		return nil, fmt.Errorf("%w: entry %s is %s", apperrors.ErrNotPosted, original.EntryID, original.Status)
	}
	reason := strings.TrimSpace(spec.Reason)
	if reason == "" {
		return nil, apperrors.ErrReasonRequired
	}

	date := spec.Now.UTC().Truncate(24 * time.Hour)
	if spec.EffectiveDate != nil {
		date = *spec.EffectiveDate
	}

	reversal := &JournalEntry{
		EntryID:     spec.EntryID,
		WorkplaceID: original.WorkplaceID,
		EntryDate:   date,
		Reference:   original.Reference + ReversalReferenceSuffix,
		Memo:        fmt.Sprintf("Reversal of %s: %s", original.Reference, reason),
		EntryTypeID: clonePtr(original.EntryTypeID),
		Status:      Posted,
		Lines:       make([]JournalLine, len(original.Lines)),
		Approvals:   []Approval{},
		ReversalOf:  &original.EntryID,
		AuditFields: NewAuditFields(spec.UserID, spec.Now),
	}
	for i, l := range original.Lines {
		reversal.Lines[i] = JournalLine{
			LineID:     spec.NewLineID(),
			EntryID:    spec.EntryID,
			LineNo:     l.LineNo,
			AccountID:  l.AccountID,
			Debit:      l.Credit,
			Credit:     l.Debit,
			Memo:       l.Memo,
			Department: l.Department,
			Project:    l.Project,
			Location:   l.Location,
		}
	}
	return reversal, nil
}

// NetByAccount returns debit minus credit per account across the given entries.
func NetByAccount(entries ...*JournalEntry) map[string]decimal.Decimal {
	net := make(map[string]decimal.Decimal)
	for _, e := range entries {
		for _, l := range e.Lines {
			net[l.AccountID] = net[l.AccountID].Add(l.Debit).Sub(l.Credit)
		}
	}
	return net
}
