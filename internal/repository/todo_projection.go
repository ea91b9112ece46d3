package repository

import (
	"sync"

	"github.com/noah-isme/training-crm-console/internal/models"
)

// TodoProjection keeps the latest open follow-up todo per customer.
type TodoProjection struct {
	mu         sync.RWMutex
	byCustomer map[string]models.Todo
	owners     map[string]string
}

// NewTodoProjection constructs an empty projection.
func NewTodoProjection() *TodoProjection {
	return &TodoProjection{
		byCustomer: make(map[string]models.Todo),
		owners:     make(map[string]string),
	}
}

// Get returns the projected todo of a customer.
func (p *TodoProjection) Get(customerID string) (*models.Todo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	todo, ok := p.byCustomer[customerID]
	if !ok {
		return nil, false
	}
	return &todo, true
}

// Put replaces the projected todo of a customer.
func (p *TodoProjection) Put(customerID string, todo models.Todo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.byCustomer[customerID]; ok && prev.ID != todo.ID {
		delete(p.owners, prev.ID)
	}
	p.byCustomer[customerID] = todo
	p.owners[todo.ID] = customerID
}

// Remove drops the projection entry of a customer.
func (p *TodoProjection) Remove(customerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.byCustomer[customerID]; ok {
		delete(p.owners, prev.ID)
	}
	delete(p.byCustomer, customerID)
}

// RemoveTodo drops whichever customer entry points at todoID and returns that customer.
func (p *TodoProjection) RemoveTodo(todoID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	customerID, ok := p.owners[todoID]
	if !ok {
		return "", false
	}
	delete(p.owners, todoID)
	delete(p.byCustomer, customerID)
	return customerID, true
}

// Snapshot copies the projection for list views.
func (p *TodoProjection) Snapshot() map[string]models.Todo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]models.Todo, len(p.byCustomer))
	for k, v := range p.byCustomer {
		out[k] = v
	}
	return out
}
