package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

// journalEntryHandler handles HTTP requests for the draft lifecycle of journal entries.
type journalEntryHandler struct {
	entryService portssvc.JournalEntrySvcFacade
}

// newJournalEntryHandler creates a new journalEntryHandler.
func newJournalEntryHandler(entryService portssvc.JournalEntrySvcFacade) *journalEntryHandler {
	return &journalEntryHandler{
		entryService: entryService,
	}
}

// registerJournalEntryRoutes registers entry routes relative to a workplace group.
func registerJournalEntryRoutes(rg *gin.RouterGroup, entryService portssvc.JournalEntrySvcFacade) {
	h := newJournalEntryHandler(entryService)

	entries := rg.Group("/journal-entries")
	{
		entries.POST("", h.createEntry)
		entries.GET("", h.listEntries)
		entries.POST("/validate", h.validateLines)
		entries.GET("/:entry_id", h.getEntry)
		entries.PUT("/:entry_id", h.updateEntry)
		entries.DELETE("/:entry_id", h.deleteEntry)
		entries.POST("/:entry_id/post", h.postEntry)
	}
}

// createEntry godoc
// @Summary Create a draft journal entry
// @Description Creates a new entry in DRAFT. Lines may be unbalanced until the entry is posted or routed for approval.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   entry body dto.CreateEntryRequest true "Entry details"
// @Success 201 {object} dto.JournalEntryResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 409 {object} map[string]string "Reference already used"
// @Failure 500 {object} map[string]string "Failed to create journal entry"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries [post]
func (h *journalEntryHandler) createEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")

	var req dto.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("workplace_id", workplaceID))

	entry, err := h.entryService.CreateEntry(c.Request.Context(), workplaceID, req, userID)
	if err != nil {
		respondWithError(c, logger, err, "create journal entry")
		return
	}

	logger.Info("Journal entry created", slog.String("entry_id", entry.EntryID))
	c.JSON(http.StatusCreated, dto.ToJournalEntryResponse(entry))
}

// listEntries godoc
// @Summary List journal entries
// @Description Lists entries newest entry date first. Users without viewAll only see their own entries.
// @Tags journal-entries
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   status query string false "Filter by status" Enums(DRAFT, PENDING_APPROVAL, POSTED, REVERSED)
// @Param   limit query int false "Page size (default 20, max 100)"
// @Param   nextToken query string false "Token of the next page"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 500 {object} map[string]string "Failed to list journal entries"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries [get]
func (h *journalEntryHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")

	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}

	resp, err := h.entryService.ListEntries(c.Request.Context(), workplaceID, userID, params)
	if err != nil {
		respondWithError(c, logger, err, "list journal entries")
		return
	}

	logger.Debug("Journal entries listed", slog.Int("count", len(resp.Entries)))
	c.JSON(http.StatusOK, resp)
}

// validateLines godoc
// @Summary Validate journal lines
// @Description Runs the balance checks on a set of lines without saving anything.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   lines body dto.ValidateLinesRequest true "Lines to validate"
// @Success 200 {object} domain.ValidationResult
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/validate [post]
func (h *journalEntryHandler) validateLines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.ValidateLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ValidateLines", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.entryService.ValidateLines(c.Request.Context(), req))
}

// getEntry godoc
// @Summary Get a journal entry
// @Description Retrieves an entry with its lines and approval chain.
// @Tags journal-entries
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   entry_id path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 500 {object} map[string]string "Failed to get journal entry"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/{entry_id} [get]
func (h *journalEntryHandler) getEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")
	entryID := c.Param("entry_id")

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}

	entry, err := h.entryService.GetEntry(c.Request.Context(), workplaceID, entryID, userID)
	if err != nil {
		respondWithError(c, logger.With(slog.String("entry_id", entryID)), err, "get journal entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// updateEntry godoc
// @Summary Update a draft journal entry
// @Description Saves edits to a draft. Omitted fields are left unchanged; lines, when given, replace all lines.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   entry_id path string true "Entry ID"
// @Param   entry body dto.UpdateEntryRequest true "Fields to update"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 409 {object} map[string]string "Entry is not a draft or was changed concurrently"
// @Failure 500 {object} map[string]string "Failed to update journal entry"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/{entry_id} [put]
func (h *journalEntryHandler) updateEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")
	entryID := c.Param("entry_id")

	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("entry_id", entryID))

	entry, err := h.entryService.UpdateEntry(c.Request.Context(), workplaceID, entryID, req, userID)
	if err != nil {
		respondWithError(c, logger, err, "update journal entry")
		return
	}

	logger.Info("Journal entry updated", slog.Int64("version", entry.Version))
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// deleteEntry godoc
// @Summary Delete a draft journal entry
// @Tags journal-entries
// @Param   workplace_id path string true "Workplace ID"
// @Param   entry_id path string true "Entry ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 409 {object} map[string]string "Only drafts can be deleted"
// @Failure 500 {object} map[string]string "Failed to delete journal entry"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/{entry_id} [delete]
func (h *journalEntryHandler) deleteEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")
	entryID := c.Param("entry_id")

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("entry_id", entryID))

	if err := h.entryService.DeleteEntry(c.Request.Context(), workplaceID, entryID, userID); err != nil {
		respondWithError(c, logger, err, "delete journal entry")
		return
	}

	logger.Info("Journal entry deleted")
	c.Status(http.StatusNoContent)
}

// postEntry godoc
// @Summary Post a draft journal entry
// @Description Posts a balanced draft directly, without approval.
// @Tags journal-entries
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   entry_id path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 409 {object} map[string]string "Entry cannot be posted from its current state"
// @Failure 422 {object} map[string]interface{} "Lines do not balance"
// @Failure 500 {object} map[string]string "Failed to post journal entry"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/{entry_id}/post [post]
func (h *journalEntryHandler) postEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")
	entryID := c.Param("entry_id")

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("entry_id", entryID))

	entry, err := h.entryService.PostEntry(c.Request.Context(), workplaceID, entryID, userID)
	if err != nil {
		respondWithError(c, logger, err, "post journal entry")
		return
	}

	logger.Info("Journal entry posted")
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}
