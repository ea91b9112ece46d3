package dto

import (
	"time"

	"github.com/noah-isme/training-crm-console/internal/models"
)

// UpsertReminderRequest sets the follow-up reminder of a customer.
type UpsertReminderRequest struct {
	Content      string `json:"content" validate:"required,max=500"`
	ReminderDate string `json:"reminderDate" validate:"required"`
	ReminderTime string `json:"reminderTime" validate:"required"`
}

// CreateTodoRequest creates a manual todo unrelated to any customer.
type CreateTodoRequest struct {
	Content      string `json:"content" validate:"required,max=500"`
	ReminderDate string `json:"reminderDate,omitempty"`
	ReminderTime string `json:"reminderTime,omitempty"`
}

// TodoPayload is the upstream body for POST /todos and PUT /todos/{id}.
type TodoPayload struct {
	CustomerID   *string         `json:"customerId,omitempty"`
	Content      string          `json:"content"`
	ReminderDate string          `json:"reminderDate,omitempty"`
	ReminderTime string          `json:"reminderTime,omitempty"`
	Type         models.TodoType `json:"type,omitempty"`
}

// DueReminders is the latest snapshot of pending reminders that are due.
type DueReminders struct {
	Count     int           `json:"count"`
	Todos     []models.Todo `json:"todos"`
	CheckedAt time.Time     `json:"checkedAt"`
}
