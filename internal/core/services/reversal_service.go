package services

import (
	"context"
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

// reversalService creates mirror entries for posted originals.
type reversalService struct {
	BaseService
	entryRepo portsrepo.JournalEntryRepositoryWithTx
	inventory portssvc.InventoryGateway
}

// NewReversalService creates a new ReversalService. inventory may be nil when no
// inventory system is attached.
func NewReversalService(entryRepo portsrepo.JournalEntryRepositoryWithTx, permissions portsrepo.PermissionRepository, inventory portssvc.InventoryGateway, opts ...BaseOption) portssvc.ReversalSvc {
	return &reversalService{
		BaseService: newBaseService(permissions, opts...),
		entryRepo:   entryRepo,
		inventory:   inventory,
	}
}

var _ portssvc.ReversalSvc = (*reversalService)(nil)

// Reverse creates the reversal and marks the original in a single unit of work. Inventory
// is reversed last inside the same unit, so a failing inventory call leaves the original
// posted. A commit that fails after inventory succeeded is logged for manual correction.
func (s *reversalService) Reverse(ctx context.Context, workplaceID, entryID string, req dto.ReverseEntryRequest, userID string) (*domain.ReversalResult, error) {
	unlock, err := s.lockEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	original, err := findEntry(ctx, s.entryRepo, workplaceID, entryID)
	if err != nil {
		return nil, err
	}
	p, err := s.principal(ctx, workplaceID, userID)
	if err != nil {
		return nil, err
	}
	authorized := domain.Authorize(p, domain.ActionReverse, original)
	if !authorized {
		return nil, fmt.Errorf("%w: user %s may not reverse entry %s", apperrors.ErrPermissionDenied, userID, entryID)
	}

	// 1. Build the mirror entry; this classifies NotPosted, AlreadyReversed and ReasonRequired.
	now := s.now()
	reason := strings.TrimSpace(req.Reason)
	reversal, err := domain.BuildReversal(original, domain.ReversalSpec{
		EntryID:       uuid.NewString(),
		Reason:        reason,
		EffectiveDate: req.EffectiveDate,
		UserID:        userID,
		Now:           now,
		NewLineID:     uuid.NewString,
	})
	if err != nil {
		return nil, err
	}
	outcome, err := domain.Transition(original.Status, domain.EventReverse, domain.TransitionGuards{
		Authorized:      authorized,
		Reason:          reason,
		AlreadyReversed: original.ReversedBy != nil,
	})
	if err != nil {
		return nil, err
	}
	reversal.Version = 1

	reversed := original.Clone()
	reversed.Status = outcome.To
	reversed.ReversedBy = &reversal.EntryID
	reversed.ReversalReason = reason
	reversed.Version = original.Version + 1
	reversed.Touch(userID, now)

	// 2. Persist both sides and reverse inventory atomically
	var (
		inventory         domain.InventoryReversal
		inventoryReversed bool
	)
	err = s.entryRepo.WithTx(ctx, func(ctx context.Context, repo portsrepo.JournalEntryRepositoryFacade) error {
		exists, err := repo.ReferenceExists(ctx, workplaceID, reversal.Reference)
		if err != nil {
			return err
		}
		if exists {
			reversal.Reference = reversal.Reference + "-" + strings.ToUpper(reversal.EntryID[:4])
		}
		if err := repo.CreateEntry(ctx, *reversal); err != nil {
			return err
		}
		if err := repo.UpdateEntry(ctx, *reversed, original.Status, original.Version); err != nil {
			return err
		}
		inventory, err = s.reverseInventory(ctx, entryID)
		if err != nil {
			return err
		}
		inventoryReversed = true
		return nil
	})
	if err != nil && inventoryReversed {
		// The inventory system has no undo call; stock stays reversed until corrected by hand.
		s.LogError(ctx, err, "Ledger commit failed after inventory was reversed",
			slog.String("entry_id", entryID),
			slog.String("workplace_id", workplaceID),
			slog.Int("inventory_movements_reversed", inventory.MovementsReversed),
			slog.Int("stock_restored", inventory.StockRestored))
		return nil, err
	}
	if err != nil {
		s.LogError(ctx, err, "Reversal rolled back",
			slog.String("entry_id", entryID),
			slog.String("workplace_id", workplaceID))
		return nil, err
	}

	s.LogInfo(ctx, "Journal entry reversed",
		slog.String("entry_id", entryID),
		slog.String("reversal_id", reversal.EntryID),
		slog.Int("inventory_movements_reversed", inventory.MovementsReversed))
	if outcome.Has(domain.EffectNotifyEntryReversed) {
		s.notify(ctx, s.event(domain.EventEntryReversed, reversed, userID).
			With("reversalID", reversal.EntryID).
			With("reason", reason))
	}

	return &domain.ReversalResult{
		Original:                   reversed,
		Reversal:                   reversal,
		InventoryMovementsReversed: inventory.MovementsReversed,
		StockRestored:              inventory.StockRestored,
	}, nil
}

func (s *reversalService) reverseInventory(ctx context.Context, entryID string) (domain.InventoryReversal, error) {
	if s.inventory == nil {
		return domain.InventoryReversal{}, nil
	}
	linked, err := s.inventory.HasLinkedMovements(ctx, entryID)
	if err != nil {
		return domain.InventoryReversal{}, fmt.Errorf("%w: inventory lookup for entry %s: %v", apperrors.ErrDependencyFailure, entryID, err)
	}
	if !linked {
		return domain.InventoryReversal{}, nil
	}
	res, err := s.inventory.ReverseInventoryFor(ctx, entryID)
	if err != nil {
		return domain.InventoryReversal{}, fmt.Errorf("%w: inventory reversal for entry %s: %v", apperrors.ErrDependencyFailure, entryID, err)
	}
	return res, nil
}
