package dto

import "github.com/SscSPs/journal_ledger/internal/core/domain"

// RequestApprovalRequest lists the users asked to approve a draft.
// An empty list is rejected by the service with a dedicated error kind.
type RequestApprovalRequest struct {
	ApproverIDs []string `json:"approverIDs"`
	Comments    string   `json:"comments,omitempty" binding:"max=1000"`
}

// ResolveApprovalRequest records an approver's decision.
type ResolveApprovalRequest struct {
	Outcome  domain.ApprovalOutcome `json:"outcome" binding:"required,oneof=APPROVED REJECTED"`
	Comments string                 `json:"comments,omitempty" binding:"max=1000"`
}

// ResolvedApprovalResponse is returned after a decision is recorded.
type ResolvedApprovalResponse struct {
	Approval  domain.Approval      `json:"approval"`
	Entry     JournalEntryResponse `json:"entry"`
	Cancelled []string             `json:"cancelled,omitempty"`
}

// ToResolvedApprovalResponse converts the service result.
func ToResolvedApprovalResponse(r *domain.ResolvedApproval) ResolvedApprovalResponse {
	return ResolvedApprovalResponse{
		Approval:  r.Approval,
		Entry:     ToJournalEntryResponse(r.Entry),
		Cancelled: r.Cancelled,
	}
}
