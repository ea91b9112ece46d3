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

type reminderService interface {
	Latest(customerID string) (*models.Todo, bool)
	ResolveExisting(ctx context.Context, customerID string) (*models.Todo, error)
	Upsert(ctx context.Context, customerID string, req dto.UpsertReminderRequest) (*models.Todo, error)
	CancelForCustomer(ctx context.Context, customerID string) error
	Cancel(ctx context.Context, todoID string) error
	Complete(ctx context.Context, todoID string) (*models.Todo, error)
	CreateManual(ctx context.Context, req dto.CreateTodoRequest) (*models.Todo, error)
}

type dueReminderReader interface {
	Due() dto.DueReminders
}

// ReminderHandler manages follow-up reminders and todos.
type ReminderHandler struct {
	service reminderService
	due     dueReminderReader
}

// NewReminderHandler constructs the handler. due may be nil when the sweep is disabled.
func NewReminderHandler(service reminderService, due dueReminderReader) *ReminderHandler {
	return &ReminderHandler{service: service, due: due}
}

// Get godoc
// @Summary Pending follow-up reminder of a customer
// @Tags Reminders
// @Produce json
// @Param id path string true "Customer ID"
// @Param refresh query bool false "Bypass the projection"
// @Success 200 {object} response.Envelope
// @Router /customers/{id}/reminder [get]
func (h *ReminderHandler) Get(c *gin.Context) {
	customerID := c.Param("id")
	if c.Query("refresh") != "true" {
		if todo, ok := h.service.Latest(customerID); ok {
			response.JSON(c, http.StatusOK, todo, nil)
			return
		}
	}
	todo, err := h.service.ResolveExisting(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, todo, nil)
}

// Upsert godoc
// @Summary Create or update the follow-up reminder of a customer
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param payload body dto.UpsertReminderRequest true "Reminder"
// @Success 200 {object} response.Envelope
// @Router /customers/{id}/reminder [put]
func (h *ReminderHandler) Upsert(c *gin.Context) {
	var req dto.UpsertReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reminder payload"))
		return
	}
	todo, err := h.service.Upsert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, todo, nil)
}

// CancelForCustomer godoc
// @Summary Cancel the pending reminder of a customer
// @Tags Reminders
// @Param id path string true "Customer ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /customers/{id}/reminder [delete]
func (h *ReminderHandler) CancelForCustomer(c *gin.Context) {
	if err := h.service.CancelForCustomer(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Create godoc
// @Summary Create a manual todo
// @Tags Todos
// @Accept json
// @Produce json
// @Param payload body dto.CreateTodoRequest true "Todo"
// @Success 201 {object} response.Envelope
// @Router /todos [post]
func (h *ReminderHandler) Create(c *gin.Context) {
	var req dto.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid todo payload"))
		return
	}
	todo, err := h.service.CreateManual(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, todo)
}

// Cancel godoc
// @Summary Delete a todo
// @Tags Todos
// @Param id path string true "Todo ID"
// @Success 204
// @Router /todos/{id} [delete]
func (h *ReminderHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Complete a todo
// @Tags Todos
// @Produce json
// @Param id path string true "Todo ID"
// @Success 200 {object} response.Envelope
// @Router /todos/{id}/complete [post]
func (h *ReminderHandler) Complete(c *gin.Context) {
	todo, err := h.service.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, todo, nil)
}

// Due godoc
// @Summary Reminders due as of the last sweep
// @Tags Todos
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /todos/due [get]
func (h *ReminderHandler) Due(c *gin.Context) {
	if h.due == nil {
		response.JSON(c, http.StatusOK, dto.DueReminders{Todos: []models.Todo{}}, nil)
		return
	}
	response.JSON(c, http.StatusOK, h.due.Due(), nil)
}
