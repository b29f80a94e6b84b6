package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

// approvalHandler handles approval routing and decisions.
type approvalHandler struct {
	approvalService portssvc.ApprovalSvcFacade
}

func newApprovalHandler(approvalService portssvc.ApprovalSvcFacade) *approvalHandler {
	return &approvalHandler{approvalService: approvalService}
}

// registerApprovalRoutes registers approval routes relative to a workplace group.
func registerApprovalRoutes(rg *gin.RouterGroup, approvalService portssvc.ApprovalSvcFacade) {
	h := newApprovalHandler(approvalService)

	rg.POST("/journal-entries/:entry_id/request-approval", h.requestApproval)
	rg.GET("/journal-entries/:entry_id/approvals", h.listApprovalHistory)

	approvals := rg.Group("/approvals")
	{
		approvals.GET("/pending", h.listPending)
		approvals.POST("/:approval_id/resolve", h.resolve)
	}
}

// requestApproval godoc
// @Summary Route a draft for approval
// @Description Moves a balanced draft to PENDING_APPROVAL with one pending record per eligible approver.
// @Tags approvals
// @Accept  json
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   entry_id path string true "Entry ID"
// @Param   request body dto.RequestApprovalRequest true "Approvers"
// @Success 201 {array} domain.Approval
// @Failure 400 {object} map[string]string "No approvers specified"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 409 {object} map[string]string "Entry is not a draft"
// @Failure 422 {object} map[string]interface{} "Lines do not balance"
// @Failure 500 {object} map[string]string "Failed to request approval"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/{entry_id}/request-approval [post]
func (h *approvalHandler) requestApproval(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")
	entryID := c.Param("entry_id")

	var req dto.RequestApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RequestApproval", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("entry_id", entryID))

	approvals, err := h.approvalService.RouteForApproval(c.Request.Context(), workplaceID, entryID, req, userID)
	if err != nil {
		respondWithError(c, logger, err, "request approval")
		return
	}

	logger.Info("Approval requested", slog.Int("approvers", len(approvals)))
	c.JSON(http.StatusCreated, approvals)
}

// listApprovalHistory godoc
// @Summary List the approval history of an entry
// @Tags approvals
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   entry_id path string true "Entry ID"
// @Success 200 {array} domain.Approval
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Journal entry not found"
// @Failure 500 {object} map[string]string "Failed to list approvals"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/journal-entries/{entry_id}/approvals [get]
func (h *approvalHandler) listApprovalHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")
	entryID := c.Param("entry_id")

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}

	approvals, err := h.approvalService.ListApprovalHistory(c.Request.Context(), workplaceID, entryID, userID)
	if err != nil {
		respondWithError(c, logger.With(slog.String("entry_id", entryID)), err, "list approvals")
		return
	}
	c.JSON(http.StatusOK, approvals)
}

// listPending godoc
// @Summary List my pending approvals
// @Description Open approval records assigned to the caller, limited to entries within their approval ceiling.
// @Tags approvals
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Success 200 {array} domain.PendingApprovalView
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 500 {object} map[string]string "Failed to list pending approvals"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/approvals/pending [get]
func (h *approvalHandler) listPending(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}

	pending, err := h.approvalService.ListPendingForApprover(c.Request.Context(), workplaceID, userID)
	if err != nil {
		respondWithError(c, logger, err, "list pending approvals")
		return
	}
	c.JSON(http.StatusOK, pending)
}

// resolve godoc
// @Summary Approve or reject
// @Description Records the caller's decision on one approval record.
// @Tags approvals
// @Accept  json
// @Produce  json
// @Param   workplace_id path string true "Workplace ID"
// @Param   approval_id path string true "Approval ID"
// @Param   decision body dto.ResolveApprovalRequest true "Decision"
// @Success 200 {object} dto.ResolvedApprovalResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "Approval not found"
// @Failure 409 {object} map[string]string "Already resolved"
// @Failure 500 {object} map[string]string "Failed to resolve approval"
// @Security BearerAuth
// @Router /workplaces/{workplace_id}/approvals/{approval_id}/resolve [post]
func (h *approvalHandler) resolve(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	workplaceID := c.Param("workplace_id")
	approvalID := c.Param("approval_id")

	var req dto.ResolveApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ResolveApproval", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("approval_id", approvalID))

	resolved, err := h.approvalService.Resolve(c.Request.Context(), workplaceID, approvalID, req, userID)
	if err != nil {
		respondWithError(c, logger, err, "resolve approval")
		return
	}

	logger.Info("Approval resolved",
		slog.String("outcome", string(req.Outcome)),
		slog.String("entry_status", string(resolved.Entry.Status)))
	c.JSON(http.StatusOK, dto.ToResolvedApprovalResponse(resolved))
}
