package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/internal/service"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
	"github.com/noah-isme/training-crm-console/pkg/response"
)

type ledgerService interface {
	List(ctx context.Context, customerID string) (*dto.LedgerView, error)
	UpdateNotes(ctx context.Context, customerID, historyID string, req dto.UpdateNotesRequest) (*models.StatusHistoryEntry, error)
	UpdateTrialTime(ctx context.Context, customerID, historyID string, req dto.UpdateTrialRequest) (*models.StatusHistoryEntry, error)
	Delete(ctx context.Context, customerID, historyID string) (*dto.LedgerView, error)
	CancelTrial(ctx context.Context, customerID, historyID string) (*models.StatusHistoryEntry, error)
	CompleteTrial(ctx context.Context, customerID, historyID string) (*models.StatusHistoryEntry, error)
	Export(ctx context.Context, customerID, rawFormat string) (*service.LedgerExport, error)
}

// HistoryHandler exposes a customer's status ledger.
type HistoryHandler struct {
	service ledgerService
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(service ledgerService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// List godoc
// @Summary Customer status ledger
// @Tags History
// @Produce json
// @Param id path string true "Customer ID"
// @Success 200 {object} response.Envelope
// @Router /customers/{id}/status-history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	view, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Export godoc
// @Summary Download the status ledger
// @Tags History
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Customer ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /customers/{id}/status-history/export [get]
func (h *HistoryHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// UpdateNotes godoc
// @Summary Edit the notes of a history entry
// @Tags History
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param historyId path string true "History entry ID"
// @Param payload body dto.UpdateNotesRequest true "Notes"
// @Success 200 {object} response.Envelope
// @Router /customers/{id}/status-history/{historyId}/notes [put]
func (h *HistoryHandler) UpdateNotes(c *gin.Context) {
	var req dto.UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notes payload"))
		return
	}
	entry, err := h.service.UpdateNotes(c.Request.Context(), c.Param("id"), c.Param("historyId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// UpdateTrial godoc
// @Summary Reschedule the trial of a history entry
// @Tags History
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param historyId path string true "History entry ID"
// @Param payload body dto.UpdateTrialRequest true "Trial slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /customers/{id}/status-history/{historyId}/trial [put]
func (h *HistoryHandler) UpdateTrial(c *gin.Context) {
	var req dto.UpdateTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid trial payload"))
		return
	}
	entry, err := h.service.UpdateTrialTime(c.Request.Context(), c.Param("id"), c.Param("historyId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete a history entry
// @Description Returns the reloaded ledger so the derived current status reflects the deletion.
// @Tags History
// @Produce json
// @Param id path string true "Customer ID"
// @Param historyId path string true "History entry ID"
// @Success 200 {object} response.Envelope
// @Router /customers/{id}/status-history/{historyId} [delete]
func (h *HistoryHandler) Delete(c *gin.Context) {
	view, err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("historyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// CancelTrial godoc
// @Summary Cancel the trial of a history entry
// @Tags History
// @Produce json
// @Param id path string true "Customer ID"
// @Param historyId path string true "History entry ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /customers/{id}/status-history/{historyId}/cancel-trial [post]
func (h *HistoryHandler) CancelTrial(c *gin.Context) {
	entry, err := h.service.CancelTrial(c.Request.Context(), c.Param("id"), c.Param("historyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// CompleteTrial godoc
// @Summary Mark the trial of a history entry completed
// @Tags History
// @Produce json
// @Param id path string true "Customer ID"
// @Param historyId path string true "History entry ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /customers/{id}/status-history/{historyId}/complete-trial [post]
func (h *HistoryHandler) CompleteTrial(c *gin.Context) {
	entry, err := h.service.CompleteTrial(c.Request.Context(), c.Param("id"), c.Param("historyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
