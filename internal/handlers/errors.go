package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

// respondWithError writes the API error body for err. Client errors carry the error kind and
// message; server errors only say what failed.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, failedTo string) {
	status := apperrors.HTTPStatus(err)
	kind := apperrors.KindOf(err)

	if status >= http.StatusInternalServerError {
		logger.Error("Failed to "+failedTo, slog.String("error", err.Error()), slog.String("kind", string(kind)))
		if status == http.StatusBadGateway {
			c.JSON(status, gin.H{"error": "Failed to " + failedTo + ": a dependent service is unavailable", "kind": kind})
			return
		}
		c.JSON(status, gin.H{"error": "Failed to " + failedTo, "kind": kind})
		return
	}

	logger.Warn("Request rejected", slog.String("error", err.Error()), slog.String("kind", string(kind)), slog.Int("status", status))
	body := gin.H{"error": err.Error(), "kind": kind}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		body["validation"] = validationErr.Result
	}
	var transitionErr *apperrors.TransitionError
	if errors.As(err, &transitionErr) {
		body["from"] = transitionErr.From
		body["event"] = transitionErr.Event
	}
	var rowErr *apperrors.RowError
	if errors.As(err, &rowErr) {
		body["row"] = rowErr.Row
		body["column"] = rowErr.Column
	}
	c.JSON(status, body)
}

// callerID returns the authenticated user, answering 401 when there is none.
func callerID(c *gin.Context, logger *slog.Logger) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}
