// Package notify delivers ledger events to outside sinks.
package notify

import (
	"context"
	"log/slog"

	"github.com/posthog/posthog-go"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

// PosthogNotifier captures ledger events and API usage in PostHog. A notifier built
// without an API key drops everything.
type PosthogNotifier struct {
	client posthog.Client
	logger *slog.Logger
}

// NewPosthogNotifier creates the notifier. The posthog client batches and sends in the background.
func NewPosthogNotifier(apiKey, endpoint string, logger *slog.Logger) *PosthogNotifier {
	if apiKey == "" {
		logger.Warn("Posthog API key is empty, ledger events will not be captured.")
		return &PosthogNotifier{logger: logger}
	}
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		logger.Error("Failed to initialize posthog client", slog.String("error", err.Error()))
		return &PosthogNotifier{logger: logger}
	}
	logger.Info("Initialized posthog client", slog.String("endpoint", endpoint))
	return &PosthogNotifier{client: client, logger: logger}
}

var _ portssvc.Notifier = (*PosthogNotifier)(nil)

// IsInitialized reports whether events are actually sent.
func (n *PosthogNotifier) IsInitialized() bool {
	return n.client != nil
}

// Notify enqueues the event under the acting user.
func (n *PosthogNotifier) Notify(ctx context.Context, event domain.LedgerEvent) {
	props := posthog.NewProperties().
		Set("eventID", event.EventID).
		Set("workplaceID", event.WorkplaceID).
		Set("entryID", event.EntryID).
		Set("occurredAt", event.OccurredAt)
	for k, v := range event.Properties {
		props.Set(k, v)
	}
	n.Track(ctx, event.ActorID, string(event.Type), props)
}

// Track enqueues an arbitrary event.
func (n *PosthogNotifier) Track(ctx context.Context, distinctID, eventName string, properties map[string]any) {
	if n.client == nil {
		return
	}
	err := n.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      eventName,
		Properties: properties,
	})
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to enqueue posthog event",
			slog.String("event", eventName),
			slog.String("error", err.Error()))
	}
}

// Close flushes pending events.
func (n *PosthogNotifier) Close() {
	if n.client == nil {
		return
	}
	if err := n.client.Close(); err != nil {
		n.logger.Warn("Failed to close posthog client", slog.String("error", err.Error()))
	}
}
