package services

import (
	"context"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/dto"
)

// ApprovalRouterSvc moves drafts into approval and records decisions.
type ApprovalRouterSvc interface {
	// RouteForApproval opens an approval round on a draft, one pending record per eligible approver.
	RouteForApproval(ctx context.Context, workplaceID, entryID string, req dto.RequestApprovalRequest, userID string) ([]domain.Approval, error)

	// Resolve records an approver's decision. Resolving a record twice is apperrors.ErrAlreadyResolved.
	Resolve(ctx context.Context, workplaceID, approvalID string, req dto.ResolveApprovalRequest, userID string) (*domain.ResolvedApproval, error)
}

// ApprovalReaderSvc lists approval records.
type ApprovalReaderSvc interface {
	// ListPendingForApprover returns the caller's open approvals within their ceiling.
	ListPendingForApprover(ctx context.Context, workplaceID, userID string) ([]domain.PendingApprovalView, error)

	// ListApprovalHistory returns the full approval chain of an entry.
	ListApprovalHistory(ctx context.Context, workplaceID, entryID, userID string) ([]domain.Approval, error)
}

// ApprovalSvcFacade combines all approval service interfaces.
type ApprovalSvcFacade interface {
	ApprovalRouterSvc
	ApprovalReaderSvc
}
