package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

const defaultImportMaxBytes = 5 << 20

// batchHandler handles bulk operations and CSV imports.
type batchHandler struct {
	batchService   portssvc.BatchSvcFacade
	importMaxBytes int64
}

func newBatchHandler(batchService portssvc.BatchSvcFacade, importMaxBytes int64) *batchHandler {
	if importMaxBytes <= 0 {
		importMaxBytes = defaultImportMaxBytes
	}
	return &batchHandler{batchService: batchService, importMaxBytes: importMaxBytes}
}

func registerBatchRoutes(rg *gin.RouterGroup, batchService portssvc.BatchSvcFacade, importMaxBytes int64) {
	h := newBatchHandler(batchService, importMaxBytes)

	rg.POST("/journal-entries/batch", h.runBatch)
	rg.POST("/journal-entries/import", h.runImport)
}

// runBatch godoc
// @Summary Apply an operation to many entries
// @Description Runs approve, post or reverse on every eligible entry. Items succeed or fail independently.
// @Tags batch
// @Accept  json
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   request body dto.BatchRequest true "Operation and entry ids"
// @Success 200 {object} domain.BatchOperationResult
// @Failure 400 {object} map[string]string "Invalid request format or reason required"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 422 {object} map[string]string "Batch rejected"
// @Failure 500 {object} map[string]string "Failed to run batch"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/batch [post]
func (h *batchHandler) runBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")

	var req dto.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RunBatch", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("operation", req.Operation))

	result, err := h.batchService.RunBatch(c.Request.Context(), workplaceID, req, userID)
	if err != nil {
		respondWithError(c, logger, err, "run batch")
		return
	}
	c.JSON(http.StatusOK, result)
}

// runImport godoc
// @Summary Import journal entries from CSV
// @Description Creates one draft per group of rows sharing an entry_key (or, without one, the same date and reference). Failures name the offending row.
// @Tags batch
// @Accept  multipart/form-data
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   file formData file true "CSV file"
// @Param   postImmediately formData bool false "Post each imported entry right away"
// @Success 200 {object} domain.BatchOperationResult
// @Failure 400 {object} map[string]string "Missing file"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 413 {object} map[string]string "File too large"
// @Failure 422 {object} map[string]string "File rejected"
// @Failure 500 {object} map[string]string "Failed to import journal entries"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/import [post]
func (h *batchHandler) runImport(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.importMaxBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("Import file too large", slog.Int64("limit", h.importMaxBytes))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Import file is too large"})
			return
		}
		logger.Warn("Import file missing", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CSV file must be uploaded in the 'file' field"})
		return
	}

	var opts dto.ImportOptions
	if err := c.ShouldBind(&opts); err != nil {
		logger.Warn("Failed to bind import options", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid import options: " + err.Error()})
		return
	}

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	logger = logger.With(slog.String("file", fileHeader.Filename), slog.Int64("size", fileHeader.Size))
	result, err := h.batchService.RunImport(c.Request.Context(), workplaceID, file, opts, userID)
	if err != nil {
		respondWithError(c, logger, err, "import journal entries")
		return
	}
	c.JSON(http.StatusOK, result)
}
