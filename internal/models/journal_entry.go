package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus mirrors the journal_entries.status column.
type EntryStatus string

// JournalEntry is a row of journal_entries.
type JournalEntry struct {
	EntryID        string      `db:"entry_id"`
	WorkplaceID    string      `db:"workplace_id"`
	EntryDate      time.Time   `db:"entry_date"`
	Reference      string      `db:"reference"`
	Memo           string      `db:"memo"`
	EntryTypeID    *string     `db:"entry_type_id"`
	Status         EntryStatus `db:"status"`
	ReversalOf     *string     `db:"reversal_of"`
	ReversedBy     *string     `db:"reversed_by"`
	ReversalReason string      `db:"reversal_reason"`
	Version        int64       `db:"version"`
	AuditFields
}

// JournalLine is a row of journal_lines.
type JournalLine struct {
	LineID     string          `db:"line_id"`
	EntryID    string          `db:"entry_id"`
	LineNo     int             `db:"line_no"`
	AccountID  string          `db:"account_id"`
	Debit      decimal.Decimal `db:"debit"`
	Credit     decimal.Decimal `db:"credit"`
	Memo       string          `db:"memo"`
	Department string          `db:"department"`
	Project    string          `db:"project"`
	Location   string          `db:"location"`
}

// Approval is a row of entry_approvals. Rows are only ever inserted or resolved.
type Approval struct {
	ApprovalID  string     `db:"approval_id"`
	EntryID     string     `db:"entry_id"`
	RoundID     string     `db:"round_id"`
	Status      string     `db:"status"`
	RequestedBy string     `db:"requested_by"`
	Approver    string     `db:"approver"`
	ResolvedBy  *string    `db:"resolved_by"`
	RequestedAt time.Time  `db:"requested_at"`
	ResolvedAt  *time.Time `db:"resolved_at"`
	Comments    string     `db:"comments"`
}
