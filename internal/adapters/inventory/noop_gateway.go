package inventory

import (
	"context"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
)

// NoopGateway is used when no inventory service is configured. No entry has movements.
type NoopGateway struct{}

var _ portssvc.InventoryGateway = NoopGateway{}

func (NoopGateway) HasLinkedMovements(ctx context.Context, entryID string) (bool, error) {
	return false, nil
}

func (NoopGateway) ReverseInventoryFor(ctx context.Context, entryID string) (domain.InventoryReversal, error) {
	return domain.InventoryReversal{}, nil
}
