package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

type reversalHandler struct {
	reversalService portssvc.ReversalSvc
}

func registerReversalRoutes(rg *gin.RouterGroup, reversalService portssvc.ReversalSvc) {
	h := &reversalHandler{reversalService: reversalService}
	rg.POST("/journal-entries/:entry_id/reverse", h.reverse)
}

// reverse godoc
// @Summary Reverse a posted journal entry
// @Description Creates and posts the mirror entry, marks the original REVERSED and reverses linked inventory movements, all or nothing.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   entry_id path string true "Entry ID"
// @Param   request body dto.ReverseEntryRequest true "Reason and optional effective date"
// @Success 201 {object} dto.ReversalResponse
// @Failure 400 {object} map[string]string "Reason required"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 409 {object} map[string]string "Entry is not posted or already reversed"
// @Failure 502 {object} map[string]string "Inventory service failed"
// @Failure 500 {object} map[string]string "Failed to reverse journal entry"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/{entry_id}/reverse [post]
func (h *reversalHandler) reverse(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")
	entryID := c.Param("entry_id")

	var req dto.ReverseEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReverseEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("entry_id", entryID))

	result, err := h.reversalService.Reverse(c.Request.Context(), workplaceID, entryID, req, userID)
	if err != nil {
		respondWithError(c, logger, err, "reverse journal entry")
		return
	}

	logger.Info("Journal entry reversed", slog.String("reversal_id", result.Reversal.EntryID))
	c.JSON(http.StatusCreated, dto.ToReversalResponse(result))
}
