package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
	"github.com/noah-isme/training-crm-console/pkg/upstream"
)

var fakeEpoch = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

// fakeUpstream is an in-memory stand-in for the remote API.
type fakeUpstream struct {
	mu    sync.Mutex
	calls []string
	seq   int

	history   map[string][]models.StatusHistoryEntry
	todos     map[string]models.Todo
	coaches   []models.Coach
	customers []models.Customer
	week      []models.TimetableSlot
	templates []models.WeeklyTemplate

	changeErr   error
	bookErr     error
	todoErr     error
	coachErr    error
	historyErr  error
	customerErr error
	listTodos   []models.Todo

	lastChange  dto.StatusChangePayload
	lastBooking dto.TrialBookingPayload
	lastFilter  models.CustomerFilter
	lastDueBy   time.Time
	lastToken   string
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		history: make(map[string][]models.StatusHistoryEntry),
		todos:   make(map[string]models.Todo),
	}
}

func (f *fakeUpstream) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeUpstream) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeUpstream) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeUpstream) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func strPtr(v string) *string {
	return &v
}

// seedHistory stores entries oldest first, one minute apart.
func (f *fakeUpstream) seedHistory(customerID string, entries ...models.StatusHistoryEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range entries {
		entries[i].CustomerID = customerID
		if entries[i].CreatedAt.IsZero() {
			f.seq++
			entries[i].CreatedAt = fakeEpoch.Add(time.Duration(f.seq) * time.Minute)
		}
	}
	f.history[customerID] = append(f.history[customerID], entries...)
}

func (f *fakeUpstream) ChangeStatus(ctx context.Context, customerID string, payload dto.StatusChangePayload) (*models.StatusHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ChangeStatus")
	f.lastChange = payload
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	entry := models.StatusHistoryEntry{
		ID:                f.nextID("h"),
		CustomerID:        customerID,
		ToStatus:          payload.ToStatus,
		Notes:             payload.Notes,
		TrialScheduleDate: payload.TrialScheduleDate,
		TrialStartTime:    payload.TrialStartTime,
		TrialEndTime:      payload.TrialEndTime,
		TrialCoachID:      payload.TrialCoachID,
		TrialStudentName:  payload.TrialStudentName,
	}
	entry.CreatedAt = fakeEpoch.Add(time.Duration(f.seq) * time.Minute)
	if existing := f.history[customerID]; len(existing) > 0 {
		head := models.SortHistoryNewestFirst(existing)[0].ToStatus
		entry.FromStatus = &head
	}
	f.history[customerID] = append(f.history[customerID], entry)
	out := entry
	return &out, nil
}

func (f *fakeUpstream) BookTrial(ctx context.Context, payload dto.TrialBookingPayload) (*models.TimetableSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("BookTrial")
	f.lastBooking = payload
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	customerID := payload.CustomerID
	return &models.TimetableSlot{
		ID:          f.nextID("slot"),
		CoachID:     payload.CoachID,
		StudentName: payload.StudentName,
		Date:        payload.Date,
		StartTime:   payload.StartTime,
		EndTime:     payload.EndTime,
		IsTrial:     true,
		CustomerID:  &customerID,
	}, nil
}

func (f *fakeUpstream) ListStatusHistory(ctx context.Context, customerID string) ([]models.StatusHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListStatusHistory")
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	out := make([]models.StatusHistoryEntry, len(f.history[customerID]))
	copy(out, f.history[customerID])
	return out, nil
}

func (f *fakeUpstream) mutateEntry(historyID string, fn func(*models.StatusHistoryEntry)) error {
	for customerID, entries := range f.history {
		for i := range entries {
			if entries[i].ID == historyID {
				fn(&f.history[customerID][i])
				return nil
			}
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "history entry not found")
}

func (f *fakeUpstream) UpdateHistoryNotes(ctx context.Context, historyID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateHistoryNotes")
	return f.mutateEntry(historyID, func(e *models.StatusHistoryEntry) { e.Notes = notes })
}

func (f *fakeUpstream) UpdateHistoryTrial(ctx context.Context, historyID string, req dto.UpdateTrialRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateHistoryTrial")
	return f.mutateEntry(historyID, func(e *models.StatusHistoryEntry) {
		e.TrialScheduleDate = strPtr(req.Date)
		e.TrialStartTime = strPtr(req.StartTime)
		e.TrialEndTime = strPtr(req.EndTime)
	})
}

func (f *fakeUpstream) DeleteHistory(ctx context.Context, historyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteHistory")
	for customerID, entries := range f.history {
		for i := range entries {
			if entries[i].ID == historyID {
				f.history[customerID] = append(entries[:i:i], entries[i+1:]...)
				return nil
			}
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "history entry not found")
}

func (f *fakeUpstream) CancelTrial(ctx context.Context, customerID, historyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CancelTrial")
	return f.mutateEntry(historyID, func(e *models.StatusHistoryEntry) { e.TrialCancelled = true })
}

func (f *fakeUpstream) CompleteTrial(ctx context.Context, customerID, historyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CompleteTrial")
	return f.mutateEntry(historyID, func(e *models.StatusHistoryEntry) { e.TrialCompleted = true })
}

func (f *fakeUpstream) AvailableCoaches(ctx context.Context, date, startTime, endTime string) ([]models.Coach, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AvailableCoaches")
	if f.coachErr != nil {
		return nil, f.coachErr
	}
	return append([]models.Coach(nil), f.coaches...), nil
}

func (f *fakeUpstream) WeekSchedules(ctx context.Context, weekStart string) ([]models.TimetableSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("WeekSchedules")
	return append([]models.TimetableSlot(nil), f.week...), nil
}

func (f *fakeUpstream) WeeklyTemplates(ctx context.Context) ([]models.WeeklyTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("WeeklyTemplates")
	return append([]models.WeeklyTemplate(nil), f.templates...), nil
}

func (f *fakeUpstream) CreateTodo(ctx context.Context, payload dto.TodoPayload) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTodo")
	if f.todoErr != nil {
		return nil, f.todoErr
	}
	todo := models.Todo{
		ID:           f.nextID("todo"),
		CustomerID:   payload.CustomerID,
		Content:      payload.Content,
		ReminderDate: payload.ReminderDate,
		ReminderTime: payload.ReminderTime,
		Type:         payload.Type,
		Status:       models.TodoPending,
		CreatedAt:    fakeEpoch.Add(time.Duration(f.seq) * time.Minute),
	}
	f.todos[todo.ID] = todo
	return &todo, nil
}

func (f *fakeUpstream) UpdateTodo(ctx context.Context, id string, payload dto.TodoPayload) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateTodo")
	if f.todoErr != nil {
		return nil, f.todoErr
	}
	todo, ok := f.todos[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "todo not found")
	}
	todo.Content = payload.Content
	todo.ReminderDate = payload.ReminderDate
	todo.ReminderTime = payload.ReminderTime
	f.todos[id] = todo
	return &todo, nil
}

func (f *fakeUpstream) DeleteTodo(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteTodo")
	if f.todoErr != nil {
		return f.todoErr
	}
	if _, ok := f.todos[id]; !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "todo not found")
	}
	delete(f.todos, id)
	return nil
}

func (f *fakeUpstream) CompleteTodo(ctx context.Context, id string) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CompleteTodo")
	todo, ok := f.todos[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "todo not found")
	}
	todo.Status = models.TodoCompleted
	f.todos[id] = todo
	return &todo, nil
}

func (f *fakeUpstream) LatestTodoForCustomer(ctx context.Context, customerID string) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("LatestTodoForCustomer")
	if f.todoErr != nil {
		return nil, f.todoErr
	}
	var owned []models.Todo
	for _, todo := range f.todos {
		if todo.CustomerID != nil && *todo.CustomerID == customerID {
			owned = append(owned, todo)
		}
	}
	return models.LatestTodo(owned), nil
}

func (f *fakeUpstream) ListTodos(ctx context.Context, status models.TodoStatus, dueBefore time.Time) ([]models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTodos")
	f.lastDueBy = dueBefore
	f.lastToken = upstream.TokenFrom(ctx)
	if f.todoErr != nil {
		return nil, f.todoErr
	}
	return append([]models.Todo(nil), f.listTodos...), nil
}

func (f *fakeUpstream) pendingTodos(customerID string) []models.Todo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Todo
	for _, todo := range f.todos {
		if todo.CustomerID != nil && *todo.CustomerID == customerID && todo.Status == models.TodoPending {
			out = append(out, todo)
		}
	}
	return out
}

func (f *fakeUpstream) ListCustomers(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, *models.Pagination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListCustomers")
	f.lastFilter = filter
	if f.customerErr != nil {
		return nil, nil, f.customerErr
	}
	return append([]models.Customer(nil), f.customers...), &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(f.customers)}, nil
}

func (f *fakeUpstream) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCustomer")
	for _, c := range f.customers {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "customer not found")
}
