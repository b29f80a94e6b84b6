package notify

import (
	"context"
	"log/slog"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

// LogNotifier writes every event to the request logger.
type LogNotifier struct{}

var _ portssvc.Notifier = LogNotifier{}

func (LogNotifier) Notify(ctx context.Context, event domain.LedgerEvent) {
	middleware.GetLoggerFromCtx(ctx).Info("Ledger event",
		slog.String("event_id", event.EventID),
		slog.String("event_type", string(event.Type)),
		slog.String("workplace_id", event.WorkplaceID),
		slog.String("entry_id", event.EntryID),
		slog.String("actor_id", event.ActorID),
		slog.Any("properties", event.Properties))
}

// Fanout delivers each event to every notifier in order.
type Fanout []portssvc.Notifier

var _ portssvc.Notifier = Fanout(nil)

func (f Fanout) Notify(ctx context.Context, event domain.LedgerEvent) {
	for _, n := range f {
		n.Notify(ctx, event)
	}
}
