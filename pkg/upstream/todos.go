package upstream

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
)

// CreateTodo runs POST /todos.
func (c *Client) CreateTodo(ctx context.Context, payload dto.TodoPayload) (*models.Todo, error) {
	var todo models.Todo
	if err := c.do(ctx, "todos.create", http.MethodPost, "/todos", nil, payload, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo runs PUT /todos/{id}.
func (c *Client) UpdateTodo(ctx context.Context, id string, payload dto.TodoPayload) (*models.Todo, error) {
	var todo models.Todo
	if err := c.do(ctx, "todos.update", http.MethodPut, "/todos/"+url.PathEscape(id), nil, payload, &todo); err != nil {
		return nil, err
	}
	if todo.ID == "" {
		todo.ID = id
	}
	return &todo, nil
}

// DeleteTodo runs DELETE /todos/{id}.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, "todos.delete", http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil, nil)
}

// CompleteTodo runs POST /todos/{id}/complete.
func (c *Client) CompleteTodo(ctx context.Context, id string) (*models.Todo, error) {
	var todo models.Todo
	if err := c.do(ctx, "todos.complete", http.MethodPost, "/todos/"+url.PathEscape(id)+"/complete", nil, nil, &todo); err != nil {
		return nil, err
	}
	if todo.ID == "" {
		todo.ID = id
	}
	return &todo, nil
}

// LatestTodoForCustomer runs GET /todos/customer/{id}/latest. A null payload yields nil.
func (c *Client) LatestTodoForCustomer(ctx context.Context, customerID string) (*models.Todo, error) {
	var todo *models.Todo
	path := "/todos/customer/" + url.PathEscape(customerID) + "/latest"
	if err := c.do(ctx, "todos.latest", http.MethodGet, path, nil, nil, &todo); err != nil {
		return nil, err
	}
	return todo, nil
}

// ListTodos runs GET /todos filtered by status and an optional due-before instant, sent as
// RFC3339 in UTC. A zero dueBefore omits the filter.
func (c *Client) ListTodos(ctx context.Context, status models.TodoStatus, dueBefore time.Time) ([]models.Todo, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if !dueBefore.IsZero() {
		q.Set("dueBefore", dueBefore.UTC().Format(time.RFC3339))
	}
	todos := []models.Todo{}
	if err := c.do(ctx, "todos.list", http.MethodGet, "/todos", q, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}
