package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

type todoGateway interface {
	CreateTodo(ctx context.Context, payload dto.TodoPayload) (*models.Todo, error)
	UpdateTodo(ctx context.Context, id string, payload dto.TodoPayload) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
	CompleteTodo(ctx context.Context, id string) (*models.Todo, error)
	LatestTodoForCustomer(ctx context.Context, customerID string) (*models.Todo, error)
}

type todoProjection interface {
	Get(customerID string) (*models.Todo, bool)
	Put(customerID string, todo models.Todo)
	Remove(customerID string)
	RemoveTodo(todoID string) (string, bool)
}

// ReminderService keeps the customer to latest follow-up projection and never duplicates
// a customer's reminder.
type ReminderService struct {
	upstream   todoGateway
	projection todoProjection
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewReminderService constructs a reminder service.
func NewReminderService(upstream todoGateway, projection todoProjection, validate *validator.Validate, logger *zap.Logger) *ReminderService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{upstream: upstream, projection: projection, validator: validate, logger: logger}
}

// ResolveExisting fetches the customer's latest todo and returns it only when it is still pending.
func (s *ReminderService) ResolveExisting(ctx context.Context, customerID string) (*models.Todo, error) {
	todo, err := s.upstream.LatestTodoForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if todo == nil || !todo.Status.Open() {
		s.projection.Remove(customerID)
		return nil, nil
	}
	s.projection.Put(customerID, *todo)
	return todo, nil
}

// Latest returns the projected pending reminder of a customer.
func (s *ReminderService) Latest(customerID string) (*models.Todo, bool) {
	return s.projection.Get(customerID)
}

// Upsert updates the customer's known pending reminder in place or creates a new follow-up.
func (s *ReminderService) Upsert(ctx context.Context, customerID string, req dto.UpsertReminderRequest) (*models.Todo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid reminder payload")
	}
	if err := validateReminderSchedule(req.ReminderDate, req.ReminderTime); err != nil {
		return nil, err
	}

	existingID := ""
	if known, ok := s.projection.Get(customerID); ok {
		existingID = known.ID
	} else {
		known, err := s.ResolveExisting(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if known != nil {
			existingID = known.ID
		}
	}

	id := customerID
	payload := dto.TodoPayload{
		CustomerID:   &id,
		Content:      strings.TrimSpace(req.Content),
		ReminderDate: req.ReminderDate,
		ReminderTime: req.ReminderTime,
		Type:         models.TodoTypeCustomerFollowUp,
	}

	var (
		todo *models.Todo
		err  error
	)
	if existingID != "" {
		todo, err = s.upstream.UpdateTodo(ctx, existingID, payload)
	} else {
		todo, err = s.upstream.CreateTodo(ctx, payload)
	}
	if err != nil {
		return nil, err
	}
	if todo == nil {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "reminder response was empty")
	}

	s.projection.Put(customerID, *todo)
	s.logger.Debug("reminder upserted",
		zap.String("customer_id", customerID),
		zap.String("todo_id", todo.ID),
		zap.Bool("updated", existingID != ""),
	)
	return todo, nil
}

// Cancel deletes a reminder and clears it from the projection.
func (s *ReminderService) Cancel(ctx context.Context, todoID string) error {
	if err := s.upstream.DeleteTodo(ctx, todoID); err != nil {
		return err
	}
	if customerID, ok := s.projection.RemoveTodo(todoID); ok {
		s.logger.Debug("reminder cancelled", zap.String("customer_id", customerID), zap.String("todo_id", todoID))
	}
	return nil
}

// CancelForCustomer deletes the customer's pending reminder, if there is one.
func (s *ReminderService) CancelForCustomer(ctx context.Context, customerID string) error {
	todo, ok := s.projection.Get(customerID)
	if !ok {
		resolved, err := s.ResolveExisting(ctx, customerID)
		if err != nil {
			return err
		}
		if resolved == nil {
			return appErrors.Clone(appErrors.ErrNotFound, "customer has no pending reminder")
		}
		todo = resolved
	}
	if err := s.upstream.DeleteTodo(ctx, todo.ID); err != nil {
		return err
	}
	s.projection.Remove(customerID)
	return nil
}

// Complete marks a todo completed and drops it from the projection.
func (s *ReminderService) Complete(ctx context.Context, todoID string) (*models.Todo, error) {
	todo, err := s.upstream.CompleteTodo(ctx, todoID)
	if err != nil {
		return nil, err
	}
	s.projection.RemoveTodo(todoID)
	return todo, nil
}

// CreateManual creates a todo that is not linked to any customer.
func (s *ReminderService) CreateManual(ctx context.Context, req dto.CreateTodoRequest) (*models.Todo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid todo payload")
	}
	if req.ReminderDate != "" || req.ReminderTime != "" {
		if err := validateReminderSchedule(req.ReminderDate, req.ReminderTime); err != nil {
			return nil, err
		}
	}
	return s.upstream.CreateTodo(ctx, dto.TodoPayload{
		Content:      strings.TrimSpace(req.Content),
		ReminderDate: req.ReminderDate,
		ReminderTime: req.ReminderTime,
		Type:         models.TodoTypeManual,
	})
}

func validateReminderSchedule(date, clock string) error {
	if _, err := models.ParseDate(date); err != nil {
		return appErrors.FieldError("reminderDate", "请选择提醒日期")
	}
	if _, err := models.ParseClock(clock); err != nil {
		return appErrors.FieldError("reminderTime", "请选择提醒时间")
	}
	return nil
}
