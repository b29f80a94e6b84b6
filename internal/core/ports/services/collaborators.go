package services

import (
	"context"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
)

// Notifier dispatches ledger events. Delivery is best effort; implementations must not block
// the caller on a slow sink and report failures only through logging.
type Notifier interface {
	Notify(ctx context.Context, event domain.LedgerEvent)
}

// InventoryGateway is the inventory service as seen by the Reversal Engine.
type InventoryGateway interface {
	// HasLinkedMovements reports whether stock movements were booked against the entry.
	HasLinkedMovements(ctx context.Context, entryID string) (bool, error)

	// ReverseInventoryFor reverses those movements and reports the counts.
	ReverseInventoryFor(ctx context.Context, entryID string) (domain.InventoryReversal, error)
}

// EntryLocker serializes mutations of a single entry.
type EntryLocker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
