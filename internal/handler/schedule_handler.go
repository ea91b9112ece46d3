package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/middleware"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
	"github.com/noah-isme/training-crm-console/pkg/response"
)

type weekScheduleService interface {
	WeeklySchedules(ctx context.Context, rawDate string) (*dto.WeekSchedule, bool, error)
	WeeklyTemplates(ctx context.Context) ([]models.WeeklyTemplate, bool, error)
	InvalidateAll(ctx context.Context) error
}

type trialResolver interface {
	FetchAvailableCoaches(ctx context.Context, date time.Time, tr models.TimeRange) (dto.CoachAvailability, error)
	Evaluate(ctx context.Context, history []models.StatusHistoryEntry, q dto.TrialSelectionQuery, canSchedule bool) (dto.TrialSelectionEvaluation, error)
}

type historyReader interface {
	History(ctx context.Context, customerID string) ([]models.StatusHistoryEntry, error)
}

// ScheduleHandler serves timetable reads and trial slot checks.
type ScheduleHandler struct {
	schedules weekScheduleService
	trials    trialResolver
	history   historyReader
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedules weekScheduleService, trials trialResolver, history historyReader) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, trials: trials, history: history}
}

// AvailableCoaches godoc
// @Summary Coaches free during a slot
// @Description An upstream failure yields queried=true, an empty list and a notice.
// @Tags Schedules
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param startTime query string true "Start (HH:mm)"
// @Param endTime query string true "End (HH:mm)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/available-coaches [get]
func (h *ScheduleHandler) AvailableCoaches(c *gin.Context) {
	date, err := models.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.FieldError("date", "请选择体验日期"))
		return
	}
	span, err := models.ParseTimeRange(c.Query("startTime"), c.Query("endTime"))
	if err != nil {
		response.Error(c, appErrors.FieldError("trialTime", "请选择有效的体验时间段"))
		return
	}
	availability, err := h.trials.FetchAvailableCoaches(c.Request.Context(), date, span)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// EvaluateTrial godoc
// @Summary Evaluate a candidate trial slot
// @Description Reports whether the slot differs from the last booking and whether the original coach stays locked.
// @Tags Schedules
// @Produce json
// @Param customerId query string true "Customer ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param startTime query string false "Start (HH:mm)"
// @Param endTime query string false "End (HH:mm)"
// @Success 200 {object} response.Envelope
// @Router /schedules/trial-selection [get]
func (h *ScheduleHandler) EvaluateTrial(c *gin.Context) {
	var q dto.TrialSelectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid trial selection query"))
		return
	}
	q.CustomerID = strings.TrimSpace(q.CustomerID)
	if q.CustomerID == "" {
		response.Error(c, appErrors.FieldError("customerId", "customerId is required"))
		return
	}
	history, err := h.history.History(c.Request.Context(), q.CustomerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	eval, err := h.trials.Evaluate(c.Request.Context(), history, q, claimsFromContext(c).CanSchedule())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eval, nil)
}

// Week godoc
// @Summary Timetable of the week containing date
// @Tags Schedules
// @Produce json
// @Param date query string false "Any day of the week (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /schedules/week [get]
func (h *ScheduleHandler) Week(c *gin.Context) {
	week, hit, err := h.schedules.WeeklySchedules(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	respond(c, http.StatusOK, week, nil)
}

// Templates godoc
// @Summary Weekly recurring templates
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/templates [get]
func (h *ScheduleHandler) Templates(c *gin.Context) {
	templates, hit, err := h.schedules.WeeklyTemplates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	respond(c, http.StatusOK, templates, nil)
}

// InvalidateCache godoc
// @Summary Drop every cached week and template
// @Tags Schedules
// @Success 204
// @Router /schedules/cache [delete]
func (h *ScheduleHandler) InvalidateCache(c *gin.Context) {
	if err := h.schedules.InvalidateAll(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
