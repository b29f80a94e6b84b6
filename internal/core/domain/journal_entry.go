package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus indicates the lifecycle state of a journal entry.
type EntryStatus string

const (
	Draft           EntryStatus = "DRAFT"
	PendingApproval EntryStatus = "PENDING_APPROVAL"
	Posted          EntryStatus = "POSTED"
	Reversed        EntryStatus = "REVERSED"
)

// AllEntryStatuses lists every state in lifecycle order.
var AllEntryStatuses = []EntryStatus{Draft, PendingApproval, Posted, Reversed}

// IsValid reports whether s is one of the four known states.
func (s EntryStatus) IsValid() bool {
	switch s {
	case Draft, PendingApproval, Posted, Reversed:
		return true
	}
	return false
}

// ParseEntryStatus converts a stored or user-supplied value into an EntryStatus.
func ParseEntryStatus(v string) (EntryStatus, error) {
	s := EntryStatus(v)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown entry status %q", v)
	}
	return s, nil
}

// JournalLine is a single debit or credit against one account.
type JournalLine struct {
	LineID     string          `json:"lineID"`
	EntryID    string          `json:"entryID"`
	LineNo     int             `json:"lineNo"` // display order only
	AccountID  string          `json:"accountID"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	Memo       string          `json:"memo,omitempty"`
	Department string          `json:"department,omitempty"`
	Project    string          `json:"project,omitempty"`
	Location   string          `json:"location,omitempty"`
}

// JournalEntry is the aggregate root: header, lines and the append-only approval chain.
type JournalEntry struct {
	EntryID        string        `json:"entryID"`
	WorkplaceID    string        `json:"workplaceID"`
	EntryDate      time.Time     `json:"entryDate"` // business date, not creation time
	Reference      string        `json:"reference"`
	Memo           string        `json:"memo,omitempty"`
	EntryTypeID    *string       `json:"entryTypeID,omitempty"`
	Status         EntryStatus   `json:"status"`
	Lines          []JournalLine `json:"lines"`
	Approvals      []Approval    `json:"approvals"`
	ReversalOf     *string       `json:"reversalOf,omitempty"`
	ReversedBy     *string       `json:"reversedBy,omitempty"`
	ReversalReason string        `json:"reversalReason,omitempty"`
	Version        int64         `json:"version"`
	AuditFields
}

// TotalDebits sums the debit side of all lines.
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// TotalCredits sums the credit side of all lines.
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// AbsoluteTotal is the entry amount used against approval ceilings.
// For an unbalanced draft the larger side counts.
func (e *JournalEntry) AbsoluteTotal() decimal.Decimal {
	d, c := e.TotalDebits().Abs(), e.TotalCredits().Abs()
	if d.GreaterThan(c) {
		return d
	}
	return c
}

// IsFrozen reports whether the lines can no longer be mutated.
func (e *JournalEntry) IsFrozen() bool {
	return e.Status == Posted || e.Status == Reversed
}

// PendingApprovals returns the approval records still awaiting a decision.
func (e *JournalEntry) PendingApprovals() []Approval {
	var pending []Approval
	for _, a := range e.Approvals {
		if a.Status == ApprovalPending {
			pending = append(pending, a)
		}
	}
	return pending
}

// ApprovalByID returns the index of the approval with the given id, or -1.
func (e *JournalEntry) ApprovalByID(approvalID string) int {
	for i := range e.Approvals {
		if e.Approvals[i].ApprovalID == approvalID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can stage changes without aliasing.
func (e *JournalEntry) Clone() *JournalEntry {
	c := *e
	c.Lines = append([]JournalLine(nil), e.Lines...)
	c.Approvals = make([]Approval, len(e.Approvals))
	for i, a := range e.Approvals {
		c.Approvals[i] = a.clone()
	}
	c.EntryTypeID = clonePtr(e.EntryTypeID)
	c.ReversalOf = clonePtr(e.ReversalOf)
	c.ReversedBy = clonePtr(e.ReversedBy)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
