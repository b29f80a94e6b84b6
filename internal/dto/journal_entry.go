package dto

import (
	"time"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// JournalLineRequest is one line as submitted by a client. Blank accounts are allowed
// on drafts and reported by validation instead of binding.
type JournalLineRequest struct {
	AccountID  string          `json:"accountID" binding:"max=64"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	Memo       string          `json:"memo,omitempty" binding:"max=500"`
	Department string          `json:"department,omitempty" binding:"max=64"`
	Project    string          `json:"project,omitempty" binding:"max=64"`
	Location   string          `json:"location,omitempty" binding:"max=64"`
}

// CreateEntryRequest defines the data needed to create a draft entry.
type CreateEntryRequest struct {
	EntryDate   time.Time            `json:"entryDate" binding:"required"`
	Reference   string               `json:"reference,omitempty" binding:"max=64"`
	Memo        string               `json:"memo,omitempty" binding:"max=500"`
	EntryTypeID *string              `json:"entryTypeID,omitempty"`
	Lines       []JournalLineRequest `json:"lines" binding:"dive"`
}

// UpdateEntryRequest replaces the provided fields of a draft. Nil fields are left as they are.
type UpdateEntryRequest struct {
	EntryDate   *time.Time           `json:"entryDate,omitempty"`
	Reference   *string              `json:"reference,omitempty" binding:"omitempty,max=64"`
	Memo        *string              `json:"memo,omitempty" binding:"omitempty,max=500"`
	EntryTypeID *string              `json:"entryTypeID,omitempty"`
	Lines       []JournalLineRequest `json:"lines,omitempty" binding:"omitempty,dive"`
}

// ValidateLinesRequest is the body of the side-effect free validation endpoint.
type ValidateLinesRequest struct {
	Lines []JournalLineRequest `json:"lines" binding:"dive"`
}

// ListEntriesParams defines the query parameters for listing entries.
type ListEntriesParams struct {
	Status    string  `form:"status" binding:"omitempty,oneof=DRAFT PENDING_APPROVAL POSTED REVERSED"`
	Limit     int     `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// JournalLineResponse is a line as returned by the API.
type JournalLineResponse struct {
	LineID     string          `json:"lineID"`
	LineNo     int             `json:"lineNo"`
	AccountID  string          `json:"accountID"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	Memo       string          `json:"memo,omitempty"`
	Department string          `json:"department,omitempty"`
	Project    string          `json:"project,omitempty"`
	Location   string          `json:"location,omitempty"`
}

// JournalEntryResponse is an entry with its lines and approval chain.
type JournalEntryResponse struct {
	EntryID        string                `json:"entryID"`
	WorkplaceID    string                `json:"workplaceID"`
	EntryDate      time.Time             `json:"entryDate"`
	Reference      string                `json:"reference"`
	Memo           string                `json:"memo,omitempty"`
	EntryTypeID    *string               `json:"entryTypeID,omitempty"`
	Status         domain.EntryStatus    `json:"status"`
	TotalDebits    decimal.Decimal       `json:"totalDebits"`
	TotalCredits   decimal.Decimal       `json:"totalCredits"`
	Lines          []JournalLineResponse `json:"lines"`
	Approvals      []domain.Approval     `json:"approvals"`
	ReversalOf     *string               `json:"reversalOf,omitempty"`
	ReversedBy     *string               `json:"reversedBy,omitempty"`
	ReversalReason string                `json:"reversalReason,omitempty"`
	Version        int64                 `json:"version"`
	CreatedAt      time.Time             `json:"createdAt"`
	CreatedBy      string                `json:"createdBy"`
	LastUpdatedAt  time.Time             `json:"lastUpdatedAt"`
	LastUpdatedBy  string                `json:"lastUpdatedBy"`
}

// ListEntriesResponse wraps a page of entries.
type ListEntriesResponse struct {
	Entries   []JournalEntryResponse `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}

// ToDomainLines converts request lines, numbering them in submission order.
func ToDomainLines(lines []JournalLineRequest) []domain.JournalLine {
	out := make([]domain.JournalLine, len(lines))
	for i, l := range lines {
		out[i] = domain.JournalLine{
			LineNo:     i + 1,
			AccountID:  l.AccountID,
			Debit:      l.Debit,
			Credit:     l.Credit,
			Memo:       l.Memo,
			Department: l.Department,
			Project:    l.Project,
			Location:   l.Location,
		}
	}
	return out
}

// ToJournalEntryResponse converts a domain.JournalEntry to its response DTO.
func ToJournalEntryResponse(e *domain.JournalEntry) JournalEntryResponse {
	lines := make([]JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineResponse{
			LineID:     l.LineID,
			LineNo:     l.LineNo,
			AccountID:  l.AccountID,
			Debit:      l.Debit,
			Credit:     l.Credit,
			Memo:       l.Memo,
			Department: l.Department,
			Project:    l.Project,
			Location:   l.Location,
		}
	}
	approvals := e.Approvals
	if approvals == nil {
		approvals = []domain.Approval{}
	}
	return JournalEntryResponse{
		EntryID:        e.EntryID,
		WorkplaceID:    e.WorkplaceID,
		EntryDate:      e.EntryDate,
		Reference:      e.Reference,
		Memo:           e.Memo,
		EntryTypeID:    e.EntryTypeID,
		Status:         e.Status,
		TotalDebits:    e.TotalDebits(),
		TotalCredits:   e.TotalCredits(),
		Lines:          lines,
		Approvals:      approvals,
		ReversalOf:     e.ReversalOf,
		ReversedBy:     e.ReversedBy,
		ReversalReason: e.ReversalReason,
		Version:        e.Version,
		CreatedAt:      e.CreatedAt,
		CreatedBy:      e.CreatedBy,
		LastUpdatedAt:  e.LastUpdatedAt,
		LastUpdatedBy:  e.LastUpdatedBy,
	}
}

// ToJournalEntryResponses converts a slice of entries.
func ToJournalEntryResponses(entries []domain.JournalEntry) []JournalEntryResponse {
	responses := make([]JournalEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToJournalEntryResponse(&entries[i])
	}
	return responses
}
