// Package inventory talks to the inventory service on behalf of the reversal engine.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

// ErrUnavailable is returned while the circuit is open.
var ErrUnavailable = errors.New("inventory service unavailable")

type movementsResponse struct {
	HasMovements bool `json:"hasMovements"`
}

type reversalResponse struct {
	MovementsReversed int `json:"movementsReversed"`
	StockRestored     int `json:"stockRestored"`
}

// HTTPGateway calls the inventory REST API through a circuit breaker.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// Option configures an HTTPGateway.
type Option func(*HTTPGateway)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *HTTPGateway) {
		g.client = c
	}
}

// WithBreakerSettings replaces the default breaker settings.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(g *HTTPGateway) {
		g.breaker = gobreaker.NewCircuitBreaker(st)
	}
}

// NewHTTPGateway creates a gateway for the service at baseURL.
func NewHTTPGateway(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "inventory",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ portssvc.InventoryGateway = (*HTTPGateway)(nil)

// HasLinkedMovements asks whether stock movements were booked against entryID.
func (g *HTTPGateway) HasLinkedMovements(ctx context.Context, entryID string) (bool, error) {
	var resp movementsResponse
	endpoint := fmt.Sprintf("%s/entries/%s/movements", g.baseURL, url.PathEscape(entryID))
	if err := g.call(ctx, http.MethodGet, endpoint, &resp); err != nil {
		return false, err
	}
	return resp.HasMovements, nil
}

// ReverseInventoryFor reverses the movements booked against entryID.
func (g *HTTPGateway) ReverseInventoryFor(ctx context.Context, entryID string) (domain.InventoryReversal, error) {
	var resp reversalResponse
	endpoint := fmt.Sprintf("%s/entries/%s/reversals", g.baseURL, url.PathEscape(entryID))
	if err := g.call(ctx, http.MethodPost, endpoint, &resp); err != nil {
		return domain.InventoryReversal{}, err
	}
	return domain.InventoryReversal{
		MovementsReversed: resp.MovementsReversed,
		StockRestored:     resp.StockRestored,
	}, nil
}

func (g *HTTPGateway) call(ctx context.Context, method, endpoint string, out any) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	_, err := g.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if requestID, ok := middleware.GetRequestIDFromCtx(ctx); ok {
			req.Header.Set("X-Request-ID", requestID)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("%s %s returned %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn("Inventory call rejected by circuit breaker", slog.String("endpoint", endpoint))
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		logger.Error("Inventory call failed", slog.String("endpoint", endpoint), slog.String("error", err.Error()))
		return err
	}
	return nil
}
