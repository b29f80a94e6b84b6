package inventory_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/journal_ledger/internal/adapters/inventory"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestHTTPGateway_HasLinkedMovements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/entries/e-1/movements", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]bool{"hasMovements": true})
	}))
	defer srv.Close()

	gw := inventory.NewHTTPGateway(srv.URL+"/api/", time.Second, discard)
	linked, err := gw.HasLinkedMovements(context.Background(), "e-1")
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestHTTPGateway_ReverseInventoryFor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/entries/e-2/reversals", r.URL.Path)
		_, _ = w.Write([]byte(`{"movementsReversed":4,"stockRestored":12}`))
	}))
	defer srv.Close()

	gw := inventory.NewHTTPGateway(srv.URL, time.Second, discard)
	res, err := gw.ReverseInventoryFor(context.Background(), "e-2")
	require.NoError(t, err)
	assert.Equal(t, 4, res.MovementsReversed)
	assert.Equal(t, 12, res.StockRestored)
}

func TestHTTPGateway_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "warehouse offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw := inventory.NewHTTPGateway(srv.URL, time.Second, discard)
	_, err := gw.HasLinkedMovements(context.Background(), "e-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "warehouse offline")
	assert.NotErrorIs(t, err, inventory.ErrUnavailable)
}

func TestHTTPGateway_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := inventory.NewHTTPGateway(srv.URL, time.Second, discard,
		inventory.WithBreakerSettings(gobreaker.Settings{
			Name:    "inventory-test",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 2
			},
		}))

	for range 2 {
		_, err := gw.HasLinkedMovements(context.Background(), "e-4")
		require.Error(t, err)
	}
	_, err := gw.HasLinkedMovements(context.Background(), "e-4")
	assert.ErrorIs(t, err, inventory.ErrUnavailable)
	assert.Equal(t, int32(2), hits.Load(), "open breaker short-circuits the call")
}

func TestHTTPGateway_ForwardsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"hasMovements":false}`))
	}))
	defer srv.Close()

	gw := inventory.NewHTTPGateway(srv.URL, time.Second, discard)
	router := gin.New()
	router.Use(middleware.StructuredLoggingMiddleware(discard))
	router.GET("/echo", func(c *gin.Context) {
		_, err := gw.HasLinkedMovements(c.Request.Context(), "e-5")
		assert.NoError(t, err)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-42", seen)
}

func TestNoopGateway(t *testing.T) {
	var gw inventory.NoopGateway
	linked, err := gw.HasLinkedMovements(context.Background(), "e-6")
	require.NoError(t, err)
	assert.False(t, linked)
}
