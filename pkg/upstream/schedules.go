package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
)

// AvailableCoaches runs GET /schedules/available-coaches for [start, end) on date.
func (c *Client) AvailableCoaches(ctx context.Context, date, startTime, endTime string) ([]models.Coach, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("startTime", startTime)
	q.Set("endTime", endTime)
	coaches := []models.Coach{}
	if err := c.do(ctx, "schedules.available_coaches", http.MethodGet, "/schedules/available-coaches", q, nil, &coaches); err != nil {
		return nil, err
	}
	return coaches, nil
}

// BookTrial runs POST /schedules/trial.
func (c *Client) BookTrial(ctx context.Context, payload dto.TrialBookingPayload) (*models.TimetableSlot, error) {
	var slot models.TimetableSlot
	if err := c.do(ctx, "schedules.book_trial", http.MethodPost, "/schedules/trial", nil, payload, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

// WeekSchedules runs GET /schedules/week for the week starting at weekStart.
func (c *Client) WeekSchedules(ctx context.Context, weekStart string) ([]models.TimetableSlot, error) {
	q := url.Values{}
	q.Set("start", weekStart)
	slots := []models.TimetableSlot{}
	if err := c.do(ctx, "schedules.week", http.MethodGet, "/schedules/week", q, nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// WeeklyTemplates runs GET /schedules/templates.
func (c *Client) WeeklyTemplates(ctx context.Context) ([]models.WeeklyTemplate, error) {
	templates := []models.WeeklyTemplate{}
	if err := c.do(ctx, "schedules.templates", http.MethodGet, "/schedules/templates", nil, nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}
