package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
)

// approvalService routes drafts to approvers and records their decisions.
type approvalService struct {
	BaseService
	entryRepo portsrepo.JournalEntryRepositoryWithTx
	accounts  portsrepo.AccountDirectory
	policy    domain.ApprovalPolicy
}

// NewApprovalService creates a new ApprovalService. An empty policy means first responder.
func NewApprovalService(entryRepo portsrepo.JournalEntryRepositoryWithTx, permissions portsrepo.PermissionRepository, accounts portsrepo.AccountDirectory, policy domain.ApprovalPolicy, opts ...BaseOption) portssvc.ApprovalSvcFacade {
	if policy == "" {
		policy = domain.PolicyFirstResponder
	}
	return &approvalService{
		BaseService: newBaseService(permissions, opts...),
		entryRepo:   entryRepo,
		accounts:    accounts,
		policy:      policy,
	}
}

var _ portssvc.ApprovalSvcFacade = (*approvalService)(nil)

// dedupeIDs trims ids and drops blanks and repeats, keeping order.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// eligibleApprovers keeps the candidates that hold approve and whose ceiling covers the entry.
// The requester is never eligible.
func (s *approvalService) eligibleApprovers(ctx context.Context, entry *domain.JournalEntry, candidates []string, requesterID string) ([]string, error) {
	amount := entry.AbsoluteTotal()
	eligible := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id == requesterID {
			continue
		}
		p, err := s.Permissions.FindPrincipal(ctx, entry.WorkplaceID, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if domain.Authorize(*p, domain.ActionApprove, entry) && domain.WithinApprovalCeiling(*p, amount) {
			eligible = append(eligible, id)
		}
	}
	return eligible, nil
}

// RouteForApproval opens a new approval round on a draft.
func (s *approvalService) RouteForApproval(ctx context.Context, workplaceID, entryID string, req dto.RequestApprovalRequest, userID string) ([]domain.Approval, error) {
	candidates := dedupeIDs(req.ApproverIDs)
	if len(candidates) == 0 {
		return nil, apperrors.ErrNoApproversSpecified
	}

	unlock, err := s.lockEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entry, err := findEntry(ctx, s.entryRepo, workplaceID, entryID)
	if err != nil {
		return nil, err
	}
	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return nil, err
	}

	guards := domain.TransitionGuards{
		Authorized: domain.Authorize(p, domain.ActionRequestApproval, entry),
		LineCount:  len(entry.Lines),
	}
	if domain.IsAllowed(entry.Status, domain.EventRequestApproval) {
		result, err := validateEntryLines(ctx, s.accounts, workplaceID, entry.Lines)
		if err != nil {
			return nil, err
		}
		guards.Validation = &result
	}
	outcome, err := domain.Transition(entry.Status, domain.EventRequestApproval, guards)
	if err != nil {
		return nil, err
	}

	approvers, err := s.eligibleApprovers(ctx, entry, candidates, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to resolve approvers", slog.String("entry_id", entryID))
		return nil, err
	}
	if len(approvers) == 0 {
		return nil, fmt.Errorf("%w: none of the requested approvers may approve entry %s", apperrors.ErrPermissionDenied, entryID)
	}

	now := s.now()
	roundID := uuid.NewString()
	routed := entry.Clone()
	opened := make([]domain.Approval, 0, len(approvers))
	for _, approver := range approvers {
		opened = append(opened, domain.Approval{
			ApprovalID:  uuid.NewString(),
			EntryID:     entryID,
			RoundID:     roundID,
			Status:      domain.ApprovalPending,
			RequestedBy: userID,
			Approver:    approver,
			RequestedAt: now,
			Comments:    req.Comments,
		})
	}
	routed.Approvals = append(routed.Approvals, opened...)
	routed.Status = outcome.To
	routed.Version = entry.Version + 1
	routed.Touch(userID, now)

	if err := s.entryRepo.UpdateEntry(ctx, *routed, entry.Status, entry.Version); err != nil {
		s.LogError(ctx, err, "Failed to route entry for approval", slog.String("entry_id", entryID))
		return nil, err
	}

	s.LogInfo(ctx, "Entry routed for approval",
		slog.String("entry_id", entryID),
		slog.String("round_id", roundID),
		slog.Int("approvers", len(approvers)))
	if outcome.Has(domain.EffectNotifyApprovalRequested) {
		s.notify(ctx, s.event(domain.EventApprovalRequested, routed, userID).
			With("roundID", roundID).
			With("approvers", approvers))
	}
	return opened, nil
}

// roundComplete reports whether approving record idx satisfies the policy.
func (s *approvalService) roundComplete(entry *domain.JournalEntry, idx int) bool {
	if s.policy != domain.PolicyUnanimous {
		return true
	}
	current := entry.Approvals[idx]
	for i, a := range entry.Approvals {
		if i == idx || a.RoundID != current.RoundID {
			continue
		}
		if a.Status != domain.ApprovalApproved {
			return false
		}
	}
	return true
}

// Resolve records an approver's decision on one approval record.
func (s *approvalService) Resolve(ctx context.Context, workplaceID, approvalID string, req dto.ResolveApprovalRequest, userID string) (*domain.ResolvedApproval, error) {
	if !req.Outcome.IsValid() {
		return nil, fmt.Errorf("%w: outcome must be APPROVED or REJECTED", apperrors.ErrValidationFailed)
	}

	owner, err := s.entryRepo.FindEntryByApprovalID(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if owner.WorkplaceID != workplaceID {
		return nil, apperrors.NewNotFoundError("approval " + approvalID)
	}

	unlock, err := s.lockEntry(ctx, owner.EntryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Reload under the lock; another approver may have won the race.
	entry, err := findEntry(ctx, s.entryRepo, workplaceID, owner.EntryID)
	if err != nil {
		return nil, err
	}
	idx := entry.ApprovalByID(approvalID)
	if idx < 0 {
		return nil, apperrors.NewNotFoundError("approval " + approvalID)
	}
	record := entry.Approvals[idx]
	if record.Status.IsResolved() {
		return nil, fmt.Errorf("%w: approval %s is %s", apperrors.ErrAlreadyResolved, approvalID, record.Status)
	}

	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return nil, err
	}
	if record.Approver != userID {
		return nil, fmt.Errorf("%w: approval %s is assigned to another user", apperrors.ErrPermissionDenied, approvalID)
	}
	authorized := domain.Authorize(p, domain.ActionApprove, entry)
	if !authorized {
		return nil, fmt.Errorf("%w: user %s may not approve entry %s", apperrors.ErrPermissionDenied, userID, entry.EntryID)
	}
	if record.RequestedBy == userID {
		return nil, fmt.Errorf("%w: approver cannot resolve their own request", apperrors.ErrPermissionDenied)
	}

	event := domain.EventApprove
	if req.Outcome == domain.OutcomeRejected {
		event = domain.EventReject
	}
	if !domain.IsAllowed(entry.Status, event) {
		return nil, &apperrors.TransitionError{From: string(entry.Status), Event: string(event)}
	}

	now := s.now()
	resolved := entry.Clone()
	resolved.Approvals[idx].Status = domain.ApprovalStatus(req.Outcome)
	resolved.Approvals[idx].ResolvedBy = &userID
	resolved.Approvals[idx].ResolvedAt = &now
	if req.Comments != "" {
		resolved.Approvals[idx].Comments = req.Comments
	}

	var outcome domain.TransitionOutcome
	switch req.Outcome {
	case domain.OutcomeApproved:
		if !s.roundComplete(entry, idx) {
			// Partial unanimous approval: record the decision, the entry stays pending.
			break
		}
		result, err := validateEntryLines(ctx, s.accounts, workplaceID, entry.Lines)
		if err != nil {
			return nil, err
		}
		outcome, err = domain.Transition(entry.Status, domain.EventApprove, domain.TransitionGuards{
			Authorized:          authorized,
			ResolverIsRequester: record.RequestedBy == userID,
			RoundComplete:       true,
			Validation:          &result,
		})
		if err != nil {
			return nil, err
		}
	case domain.OutcomeRejected:
		outcome, err = domain.Transition(entry.Status, domain.EventReject, domain.TransitionGuards{Authorized: authorized})
		if err != nil {
			return nil, err
		}
	}

	var cancelled []string
	if outcome.Has(domain.EffectCancelPendingApprovals) {
		for i := range resolved.Approvals {
			if i == idx || resolved.Approvals[i].Status != domain.ApprovalPending {
				continue
			}
			resolved.Approvals[i].Status = domain.ApprovalCancelled
			resolved.Approvals[i].ResolvedBy = &userID
			resolved.Approvals[i].ResolvedAt = &now
			cancelled = append(cancelled, resolved.Approvals[i].ApprovalID)
		}
	}
	if outcome.To != "" {
		resolved.Status = outcome.To
	}
	resolved.Version = entry.Version + 1
	resolved.Touch(userID, now)

	if err := s.entryRepo.UpdateEntry(ctx, *resolved, entry.Status, entry.Version); err != nil {
		s.LogError(ctx, err, "Failed to record approval decision",
			slog.String("approval_id", approvalID),
			slog.String("entry_id", entry.EntryID))
		return nil, err
	}

	s.LogInfo(ctx, "Approval resolved",
		slog.String("approval_id", approvalID),
		slog.String("entry_id", entry.EntryID),
		slog.String("outcome", string(req.Outcome)),
		slog.String("entry_status", string(resolved.Status)))

	events := []domain.LedgerEvent{
		s.event(domain.EventApprovalResolved, resolved, userID).
			With("approvalID", approvalID).
			With("outcome", string(req.Outcome)),
	}
	if outcome.Has(domain.EffectNotifyEntryPosted) {
		events = append(events, s.event(domain.EventEntryPosted, resolved, userID))
	}
	s.notify(ctx, events...)

	return &domain.ResolvedApproval{
		Approval:  resolved.Approvals[idx],
		Entry:     resolved,
		Cancelled: cancelled,
	}, nil
}

// ListPendingForApprover returns the caller's open records whose entries are within their ceiling.
func (s *approvalService) ListPendingForApprover(ctx context.Context, workplaceID, userID string) ([]domain.PendingApprovalView, error) {
	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return nil, err
	}
	if !p.Can(domain.ActionApprove) {
		return nil, fmt.Errorf("%w: user %s may not approve entries", apperrors.ErrPermissionDenied, userID)
	}

	records, err := s.entryRepo.ListPendingApprovals(ctx, workplaceID, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list pending approvals", slog.String("user_id", userID))
		return nil, err
	}

	pending := make([]domain.PendingApprovalView, 0, len(records))
	for _, rec := range records {
		entry, err := findEntry(ctx, s.entryRepo, workplaceID, rec.EntryID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if entry.Status != domain.PendingApproval || !domain.WithinApprovalCeiling(p, entry.AbsoluteTotal()) {
			continue
		}
		pending = append(pending, domain.PendingApprovalView{
			Approval:      rec,
			EntryID:       entry.EntryID,
			Reference:     entry.Reference,
			EntryDate:     entry.EntryDate,
			Memo:          entry.Memo,
			AbsoluteTotal: entry.AbsoluteTotal().StringFixed(2),
			Status:        entry.Status,
		})
	}
	return pending, nil
}

// ListApprovalHistory returns the whole approval chain of an entry.
func (s *approvalService) ListApprovalHistory(ctx context.Context, workplaceID, entryID, userID string) ([]domain.Approval, error) {
	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return nil, err
	}
	entry, err := findEntry(ctx, s.entryRepo, workplaceID, entryID)
	if err != nil {
		return nil, err
	}

	assigned := false
	for _, a := range entry.Approvals {
		if a.Approver == userID {
			assigned = true
			break
		}
	}
	if !domain.CanView(p, entry) && !assigned {
		return nil, fmt.Errorf("%w: user %s may not view entry %s", apperrors.ErrPermissionDenied, userID, entryID)
	}

	history := entry.Clone().Approvals
	if history == nil {
		history = []domain.Approval{}
	}
	return history, nil
}
