package dto

import "github.com/noah-isme/training-crm-console/internal/models"

// CoachAvailability distinguishes "not queried yet" from "queried, nobody free".
type CoachAvailability struct {
	Queried bool           `json:"queried"`
	Coaches []models.Coach `json:"coaches"`
	Notice  string         `json:"notice,omitempty"`
}

// TrialSelectionQuery is a candidate trial slot for a customer.
type TrialSelectionQuery struct {
	CustomerID string `form:"customerId" validate:"required"`
	Date       string `form:"date"`
	StartTime  string `form:"startTime"`
	EndTime    string `form:"endTime"`
}

// TrialSelectionEvaluation tells the console how to render the coach control.
type TrialSelectionEvaluation struct {
	Modified     bool                 `json:"modified"`
	CoachLocked  bool                 `json:"coachLocked"`
	CoachID      string               `json:"coachId,omitempty"`
	CoachName    string               `json:"coachName,omitempty"`
	Original     *models.TrialBooking `json:"original,omitempty"`
	Availability CoachAvailability    `json:"availability"`
}

// WeekSchedule is the cached timetable of one week.
type WeekSchedule struct {
	WeekStart string                 `json:"weekStart"`
	Slots     []models.TimetableSlot `json:"slots"`
}

// SearchResult is the answer to one debounced search keystroke.
type SearchResult struct {
	Query      string             `json:"query"`
	Superseded bool               `json:"superseded"`
	Customers  []models.Customer  `json:"customers"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}
