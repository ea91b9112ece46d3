package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
	"github.com/noah-isme/training-crm-console/pkg/response"
)

type statusTransitioner interface {
	Submit(ctx context.Context, claims *models.SessionClaims, customerID string, req dto.StatusChangeRequest) (*dto.StatusChangeResult, error)
}

// StatusHandler accepts status changes from the console.
type StatusHandler struct {
	service statusTransitioner
}

// NewStatusHandler constructs the handler.
func NewStatusHandler(service statusTransitioner) *StatusHandler {
	return &StatusHandler{service: service}
}

// Submit godoc
// @Summary Change customer status
// @Description Persists the history entry, then books the trial and sets the reminder on a best-effort basis.
// @Tags Status
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param payload body dto.StatusChangeRequest true "Status change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /customers/{id}/status-changes [post]
func (h *StatusHandler) Submit(c *gin.Context) {
	var req dto.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status change payload"))
		return
	}

	result, err := h.service.Submit(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		if result != nil {
			response.ErrorWithMeta(c, err, map[string]interface{}{"result": result})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
