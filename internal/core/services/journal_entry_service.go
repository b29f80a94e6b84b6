package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/SscSPs/journal_ledger/internal/utils/accounting"
)

const (
	defaultListLimit = 20
	referencePrefix  = "JE-"
)

// journalEntryService manages the draft side of the lifecycle: create, save, delete and direct posting.
type journalEntryService struct {
	BaseService
	entryRepo portsrepo.JournalEntryRepositoryWithTx
	accounts  portsrepo.AccountDirectory
}

// NewJournalEntryService creates a new JournalEntryService.
func NewJournalEntryService(entryRepo portsrepo.JournalEntryRepositoryWithTx, permissions portsrepo.PermissionRepository, accounts portsrepo.AccountDirectory, opts ...BaseOption) portssvc.JournalEntrySvcFacade {
	return &journalEntryService{
		BaseService: newBaseService(permissions, opts...),
		entryRepo:   entryRepo,
		accounts:    accounts,
	}
}

// Ensure journalEntryService implements the portssvc.JournalEntrySvcFacade interface
var _ portssvc.JournalEntrySvcFacade = (*journalEntryService)(nil)

// generateReference builds a human readable reference such as JE-20240131-1A2B3C4D.
func generateReference(date time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return referencePrefix + date.Format("20060102") + "-" + suffix
}

// newLines assigns fresh ids to request lines.
func newLines(entryID string, req []dto.JournalLineRequest) []domain.JournalLine {
	lines := dto.ToDomainLines(req)
	for i := range lines {
		lines[i].LineID = uuid.NewString()
		lines[i].EntryID = entryID
	}
	return lines
}

// CreateEntry creates a new draft entry. Drafts may be unbalanced or incomplete.
func (s *journalEntryService) CreateEntry(ctx context.Context, workplaceID string, req dto.CreateEntryRequest, userID string) (*domain.JournalEntry, error) {
	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return nil, err
	}
	if !domain.Authorize(p, domain.ActionCreate, nil) {
		return nil, fmt.Errorf("%w: user %s may not create entries", apperrors.ErrPermissionDenied, userID)
	}

	now := s.now()
	entryID := uuid.NewString()

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = generateReference(req.EntryDate)
	}
	exists, err := s.entryRepo.ReferenceExists(ctx, workplaceID, reference)
	if err != nil {
		s.LogError(ctx, err, "Failed to check reference uniqueness", slog.String("reference", reference))
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: reference %s is already used", apperrors.ErrDuplicate, reference)
	}

	entry := domain.JournalEntry{
		EntryID:     entryID,
		WorkplaceID: workplaceID,
		EntryDate:   req.EntryDate,
		Reference:   reference,
		Memo:        req.Memo,
		EntryTypeID: req.EntryTypeID,
		Status:      domain.Draft,
		Lines:       newLines(entryID, req.Lines),
		Approvals:   []domain.Approval{},
		Version:     1,
		AuditFields: domain.NewAuditFields(userID, now),
	}

	if err := s.entryRepo.CreateEntry(ctx, entry); err != nil {
		s.LogError(ctx, err, "Failed to create journal entry",
			slog.String("workplace_id", workplaceID),
			slog.String("reference", reference))
		return nil, err
	}

	s.LogInfo(ctx, "Journal entry created",
		slog.String("entry_id", entryID),
		slog.String("reference", reference),
		slog.Int("lines", len(entry.Lines)))
	return &entry, nil
}

// GetEntry retrieves an entry the user may view.
func (s *journalEntryService) GetEntry(ctx context.Context, workplaceID, entryID, userID string) (*domain.JournalEntry, error) {
	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return nil, err
	}
	entry, err := findEntry(ctx, s.entryRepo, workplaceID, entryID)
	if err != nil {
		return nil, err
	}
	if !domain.CanView(p, entry) {
		return nil, fmt.Errorf("%w: user %s may not view entry %s", apperrors.ErrPermissionDenied, userID, entryID)
	}
	return entry, nil
}

// ListEntries returns a page of entries. Users without viewAll only see their own.
func (s *journalEntryService) ListEntries(ctx context.Context, workplaceID, userID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return nil, err
	}

	filter := portsrepo.EntryFilter{}
	if params.Status != "" {
		status, err := domain.ParseEntryStatus(params.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidationFailed, err)
		}
		filter.Status = &status
	}
	if !p.Can(domain.ActionViewAll) {
		filter.CreatedBy = userID
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	entries, nextToken, err := s.entryRepo.ListEntriesByWorkplace(ctx, workplaceID, filter, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list journal entries", slog.String("workplace_id", workplaceID))
		return nil, err
	}
	return &dto.ListEntriesResponse{
		Entries:   dto.ToJournalEntryResponses(entries),
		NextToken: nextToken,
	}, nil
}

// ValidateLines runs the structural checks only; it never touches an entry.
func (s *journalEntryService) ValidateLines(ctx context.Context, req dto.ValidateLinesRequest) domain.ValidationResult {
	return accounting.ValidateLines(dto.ToDomainLines(req.Lines))
}

// UpdateEntry saves edits to a draft. The SAVE event is only defined from Draft.
func (s *journalEntryService) UpdateEntry(ctx context.Context, workplaceID, entryID string, req dto.UpdateEntryRequest, userID string) (*domain.JournalEntry, error) {
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

	outcome, err := domain.Transition(entry.Status, domain.EventSave, domain.TransitionGuards{
		Authorized: domain.Authorize(p, domain.ActionEdit, entry),
	})
	if err != nil {
		s.LogDebug(ctx, "Save rejected", slog.String("entry_id", entryID), slog.String("error", err.Error()))
		return nil, err
	}

	updated := entry.Clone()
	if req.EntryDate != nil {
		updated.EntryDate = *req.EntryDate
	}
	if req.Memo != nil {
		updated.Memo = *req.Memo
	}
	if req.EntryTypeID != nil {
		updated.EntryTypeID = req.EntryTypeID
		if *req.EntryTypeID == "" {
			updated.EntryTypeID = nil
		}
	}
	if req.Reference != nil {
		ref := strings.TrimSpace(*req.Reference)
		if ref == "" {
			return nil, fmt.Errorf("%w: reference cannot be blank", apperrors.ErrValidationFailed)
		}
		if ref != entry.Reference {
			exists, err := s.entryRepo.ReferenceExists(ctx, workplaceID, ref)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, fmt.Errorf("%w: reference %s is already used", apperrors.ErrDuplicate, ref)
			}
			updated.Reference = ref
		}
	}
	if req.Lines != nil {
		updated.Lines = newLines(entryID, req.Lines)
	}

	updated.Status = outcome.To
	updated.Version = entry.Version + 1
	updated.Touch(userID, s.now())

	if err := s.entryRepo.UpdateEntry(ctx, *updated, entry.Status, entry.Version); err != nil {
		s.LogError(ctx, err, "Failed to save journal entry", slog.String("entry_id", entryID))
		return nil, err
	}
	return updated, nil
}

// DeleteEntry removes a draft. Anything past Draft is part of the audit trail.
func (s *journalEntryService) DeleteEntry(ctx context.Context, workplaceID, entryID, userID string) error {
	unlock, err := s.lockEntry(ctx, entryID)
	if err != nil {
		return err
	}
	defer unlock()

	entry, err := findEntry(ctx, s.entryRepo, workplaceID, entryID)
	if err != nil {
		return err
	}
	if entry.Status != domain.Draft {
		return &apperrors.TransitionError{From: string(entry.Status), Event: "DELETE"}
	}
	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return err
	}
	if !domain.Authorize(p, domain.ActionDelete, entry) {
		return fmt.Errorf("%w: user %s may not delete entry %s", apperrors.ErrPermissionDenied, userID, entryID)
	}

	if err := s.entryRepo.DeleteEntry(ctx, entryID, domain.Draft, entry.Version); err != nil {
		s.LogError(ctx, err, "Failed to delete journal entry", slog.String("entry_id", entryID))
		return err
	}
	s.LogInfo(ctx, "Journal entry deleted", slog.String("entry_id", entryID))
	return nil
}

// PostEntry posts a balanced draft without an approval round.
func (s *journalEntryService) PostEntry(ctx context.Context, workplaceID, entryID, userID string) (*domain.JournalEntry, error) {
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

	// 1. Only validate when the transition could apply, so a posted entry reports InvalidTransition.
	guards := domain.TransitionGuards{Authorized: domain.Authorize(p, domain.ActionPost, entry)}
	if domain.IsAllowed(entry.Status, domain.EventPost) {
		result, err := validateEntryLines(ctx, s.accounts, workplaceID, entry.Lines)
		if err != nil {
			return nil, err
		}
		guards.Validation = &result
	}

	// 2. Ask the state machine
	outcome, err := domain.Transition(entry.Status, domain.EventPost, guards)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.LogDebug(ctx, "Entry failed validation on post",
				slog.String("entry_id", entryID),
				slog.Any("codes", verr.Result.Codes()))
		}
		return nil, err
	}

	// 3. Apply and persist conditionally
	posted := entry.Clone()
	posted.Status = outcome.To
	posted.Version = entry.Version + 1
	posted.Touch(userID, s.now())
	if err := s.entryRepo.UpdateEntry(ctx, *posted, entry.Status, entry.Version); err != nil {
		s.LogError(ctx, err, "Failed to post journal entry", slog.String("entry_id", entryID))
		return nil, err
	}

	s.LogInfo(ctx, "Journal entry posted", slog.String("entry_id", entryID), slog.String("reference", posted.Reference))
	if outcome.Has(domain.EffectNotifyEntryPosted) {
		s.notify(ctx, s.event(domain.EventEntryPosted, posted, userID))
	}
	return posted, nil
}
