package repository

import (
	"sync"

	"github.com/noah-isme/training-crm-console/internal/models"
)

// HistoryProjection caches each customer's status ledger, newest first.
type HistoryProjection struct {
	mu         sync.RWMutex
	byCustomer map[string][]models.StatusHistoryEntry
}

// NewHistoryProjection constructs an empty projection.
func NewHistoryProjection() *HistoryProjection {
	return &HistoryProjection{byCustomer: make(map[string][]models.StatusHistoryEntry)}
}

// Get returns a copy of the cached ledger.
func (p *HistoryProjection) Get(customerID string) ([]models.StatusHistoryEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries, ok := p.byCustomer[customerID]
	if !ok {
		return nil, false
	}
	out := make([]models.StatusHistoryEntry, len(entries))
	copy(out, entries)
	return out, true
}

// Put replaces the cached ledger, ordering it newest first.
func (p *HistoryProjection) Put(customerID string, entries []models.StatusHistoryEntry) {
	sorted := models.SortHistoryNewestFirst(entries)
	p.mu.Lock()
	p.byCustomer[customerID] = sorted
	p.mu.Unlock()
}

// Prepend records a freshly created entry ahead of the cached ledger.
func (p *HistoryProjection) Prepend(customerID string, entry models.StatusHistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing := p.byCustomer[customerID]
	next := make([]models.StatusHistoryEntry, 0, len(existing)+1)
	next = append(next, entry)
	next = append(next, existing...)
	p.byCustomer[customerID] = models.SortHistoryNewestFirst(next)
}

// Update applies fn to the cached entry and reports whether it was found.
func (p *HistoryProjection) Update(customerID, historyID string, fn func(*models.StatusHistoryEntry)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.byCustomer[customerID]
	for i := range entries {
		if entries[i].ID == historyID {
			fn(&entries[i])
			return true
		}
	}
	return false
}

// Find returns a copy of a cached entry.
func (p *HistoryProjection) Find(customerID, historyID string) (models.StatusHistoryEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, entry := range p.byCustomer[customerID] {
		if entry.ID == historyID {
			return entry, true
		}
	}
	return models.StatusHistoryEntry{}, false
}

// Remove drops one cached entry and reports whether it was present.
func (p *HistoryProjection) Remove(customerID, historyID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.byCustomer[customerID]
	for i := range entries {
		if entries[i].ID == historyID {
			next := make([]models.StatusHistoryEntry, 0, len(entries)-1)
			next = append(next, entries[:i]...)
			next = append(next, entries[i+1:]...)
			p.byCustomer[customerID] = next
			return true
		}
	}
	return false
}
