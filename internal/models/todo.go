package models

import "time"

// TodoType distinguishes customer follow-ups from free-standing todos.
type TodoType string

const (
	TodoTypeManual           TodoType = "MANUAL"
	TodoTypeCustomerFollowUp TodoType = "CUSTOMER_FOLLOW_UP"
)

// Valid reports whether t is a known todo type.
func (t TodoType) Valid() bool {
	switch t {
	case TodoTypeManual, TodoTypeCustomerFollowUp:
		return true
	default:
		return false
	}
}

// TodoStatus is the lifecycle state of a todo.
type TodoStatus string

const (
	TodoPending   TodoStatus = "PENDING"
	TodoCompleted TodoStatus = "COMPLETED"
	TodoCancelled TodoStatus = "CANCELLED"
)

// Open reports whether the todo still needs attention.
func (s TodoStatus) Open() bool {
	switch s {
	case TodoPending:
		return true
	case TodoCompleted, TodoCancelled:
		return false
	default:
		return false
	}
}

// Todo is a follow-up reminder, optionally linked to a customer.
type Todo struct {
	ID           string     `json:"id"`
	CustomerID   *string    `json:"customerId,omitempty"`
	CustomerName string     `json:"customerName,omitempty"`
	Content      string     `json:"content"`
	ReminderDate string     `json:"reminderDate,omitempty"`
	ReminderTime string     `json:"reminderTime,omitempty"`
	Type         TodoType   `json:"type"`
	Status       TodoStatus `json:"status"`
	CreatedBy    string     `json:"createdBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
}

// SortKey orders todos by reminder date and time, falling back to creation time.
func (t Todo) SortKey() string {
	if t.ReminderDate != "" {
		return t.ReminderDate + "T" + t.ReminderTime
	}
	return t.CreatedAt.UTC().Format(time.RFC3339Nano)
}

// LatestTodo picks the todo with the greatest SortKey, or nil for an empty slice.
func LatestTodo(todos []Todo) *Todo {
	var latest *Todo
	for i := range todos {
		if latest == nil || todos[i].SortKey() > latest.SortKey() {
			latest = &todos[i]
		}
	}
	if latest == nil {
		return nil
	}
	out := *latest
	return &out
}

// DueAt returns the reminder instant in loc, or false when the todo has no reminder date.
func (t Todo) DueAt(loc *time.Location) (time.Time, bool) {
	if t.ReminderDate == "" {
		return time.Time{}, false
	}
	clock := t.ReminderTime
	if clock == "" {
		clock = "00:00"
	}
	d, err := ParseDate(t.ReminderDate)
	if err != nil {
		return time.Time{}, false
	}
	c, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), int(c)/60, int(c)%60, 0, 0, loc), true
}
