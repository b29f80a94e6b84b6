package domain

import "time"

// ApprovalStatus is the state of a single approval record.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
	// ApprovalCancelled marks a record made moot by another approver's decision.
	ApprovalCancelled ApprovalStatus = "CANCELLED"
)

// IsResolved reports whether the record can no longer be decided.
func (s ApprovalStatus) IsResolved() bool {
	return s != ApprovalPending
}

// ApprovalOutcome is what an approver decides.
type ApprovalOutcome string

const (
	OutcomeApproved ApprovalOutcome = "APPROVED"
	OutcomeRejected ApprovalOutcome = "REJECTED"
)

// IsValid reports whether o is a decidable outcome.
func (o ApprovalOutcome) IsValid() bool {
	return o == OutcomeApproved || o == OutcomeRejected
}

// ApprovalPolicy decides when a round of approvals is satisfied.
type ApprovalPolicy string

const (
	// PolicyFirstResponder posts or rejects on the first decision; siblings are cancelled.
	PolicyFirstResponder ApprovalPolicy = "FIRST_RESPONDER"
	// PolicyUnanimous posts only once every record in the round is approved.
	PolicyUnanimous ApprovalPolicy = "UNANIMOUS"
)

// Approval is one approver's record within an approval round.
type Approval struct {
	ApprovalID  string         `json:"approvalID"`
	EntryID     string         `json:"entryID"`
	RoundID     string         `json:"roundID"`
	Status      ApprovalStatus `json:"status"`
	RequestedBy string         `json:"requestedBy"`
	Approver    string         `json:"approver"`
	ResolvedBy  *string        `json:"resolvedBy,omitempty"`
	RequestedAt time.Time      `json:"requestedAt"`
	ResolvedAt  *time.Time     `json:"resolvedAt,omitempty"`
	Comments    string         `json:"comments,omitempty"`
}

func (a Approval) clone() Approval {
	a.ResolvedBy = clonePtr(a.ResolvedBy)
	a.ResolvedAt = clonePtr(a.ResolvedAt)
	return a
}

// RoundApprovals returns every record belonging to the given round.
func (e *JournalEntry) RoundApprovals(roundID string) []Approval {
	var round []Approval
	for _, a := range e.Approvals {
		if a.RoundID == roundID {
			round = append(round, a)
		}
	}
	return round
}

// ResolvedApproval is the result of deciding one approval record.
type ResolvedApproval struct {
	Approval Approval      `json:"approval"`
	Entry    *JournalEntry `json:"entry"`
	// Cancelled lists sibling records that became moot.
	Cancelled []string `json:"cancelled,omitempty"`
}

// PendingApprovalView pairs an approver's open record with its entry header.
type PendingApprovalView struct {
	Approval      Approval    `json:"approval"`
	EntryID       string      `json:"entryID"`
	Reference     string      `json:"reference"`
	EntryDate     time.Time   `json:"entryDate"`
	Memo          string      `json:"memo,omitempty"`
	AbsoluteTotal string      `json:"absoluteTotal"`
	Status        EntryStatus `json:"status"`
}
