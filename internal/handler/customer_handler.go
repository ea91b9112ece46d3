package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
	"github.com/noah-isme/training-crm-console/pkg/response"
)

type customerService interface {
	Search(ctx context.Context, sessionKey string, filter models.CustomerFilter) (*dto.SearchResult, error)
	Get(ctx context.Context, id string) (*models.Customer, error)
}

// CustomerHandler serves customer lookup for the console.
type CustomerHandler struct {
	service customerService
}

// NewCustomerHandler constructs the handler.
func NewCustomerHandler(service customerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

// Search godoc
// @Summary Search customers
// @Description Debounced per console session. A superseded keystroke returns superseded=true and no customers.
// @Tags Customers
// @Produce json
// @Param search query string false "Name or phone fragment"
// @Param status query string false "Customer status"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Param X-Console-Session header string false "Console tab identifier"
// @Success 200 {object} response.Envelope
// @Router /customers [get]
func (h *CustomerHandler) Search(c *gin.Context) {
	filter := models.CustomerFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseCustomerStatus(raw)
		if err != nil {
			response.Error(c, appErrors.FieldError("status", "未知的客户状态"))
			return
		}
		filter.Status = status
	}

	result, err := h.service.Search(c.Request.Context(), consoleSession(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, result.Pagination)
}

// Get godoc
// @Summary Get customer
// @Tags Customers
// @Produce json
// @Param id path string true "Customer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, customer, nil)
}
