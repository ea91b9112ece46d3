package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
)

type customerPage struct {
	Items      []models.Customer  `json:"items"`
	Pagination *models.Pagination `json:"pagination"`
}

// ListCustomers runs GET /customers with the given filter.
func (c *Client) ListCustomers(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, *models.Pagination, error) {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Status != models.StatusUnknown {
		q.Set("status", string(filter.Status))
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(filter.PageSize))
	}
	var page customerPage
	if err := c.do(ctx, "customers.list", http.MethodGet, "/customers", q, nil, &page); err != nil {
		return nil, nil, err
	}
	return page.Items, page.Pagination, nil
}

// GetCustomer runs GET /customers/{id}.
func (c *Client) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := c.do(ctx, "customers.get", http.MethodGet, "/customers/"+url.PathEscape(id), nil, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// ChangeStatus runs POST /customers/{id}/status-history/change and returns the created entry.
func (c *Client) ChangeStatus(ctx context.Context, customerID string, payload dto.StatusChangePayload) (*models.StatusHistoryEntry, error) {
	var entry models.StatusHistoryEntry
	path := "/customers/" + url.PathEscape(customerID) + "/status-history/change"
	if err := c.do(ctx, "status_history.change", http.MethodPost, path, nil, payload, &entry); err != nil {
		return nil, err
	}
	if entry.CustomerID == "" {
		entry.CustomerID = customerID
	}
	return &entry, nil
}

// ListStatusHistory runs GET /customers/{id}/status-history (newest first).
func (c *Client) ListStatusHistory(ctx context.Context, customerID string) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	path := "/customers/" + url.PathEscape(customerID) + "/status-history"
	if err := c.do(ctx, "status_history.list", http.MethodGet, path, nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateHistoryNotes runs PUT /customers/status-history/{historyId}.
func (c *Client) UpdateHistoryNotes(ctx context.Context, historyID, notes string) error {
	body := map[string]string{"notes": notes}
	path := "/customers/status-history/" + url.PathEscape(historyID)
	return c.do(ctx, "status_history.update", http.MethodPut, path, nil, body, nil)
}

// UpdateHistoryTrial runs PUT /customers/status-history/{historyId}/trial.
func (c *Client) UpdateHistoryTrial(ctx context.Context, historyID string, req dto.UpdateTrialRequest) error {
	path := "/customers/status-history/" + url.PathEscape(historyID) + "/trial"
	return c.do(ctx, "status_history.update_trial", http.MethodPut, path, nil, req, nil)
}

// DeleteHistory runs DELETE /customers/status-history/{historyId}.
func (c *Client) DeleteHistory(ctx context.Context, historyID string) error {
	path := "/customers/status-history/" + url.PathEscape(historyID)
	return c.do(ctx, "status_history.delete", http.MethodDelete, path, nil, nil, nil)
}

// CancelTrial runs POST /customers/{id}/status-history/{historyId}/cancel-trial.
func (c *Client) CancelTrial(ctx context.Context, customerID, historyID string) error {
	path := "/customers/" + url.PathEscape(customerID) + "/status-history/" + url.PathEscape(historyID) + "/cancel-trial"
	return c.do(ctx, "status_history.cancel_trial", http.MethodPost, path, nil, nil, nil)
}

// CompleteTrial runs POST /customers/{id}/status-history/{historyId}/complete-trial.
func (c *Client) CompleteTrial(ctx context.Context, customerID, historyID string) error {
	path := "/customers/" + url.PathEscape(customerID) + "/status-history/" + url.PathEscape(historyID) + "/complete-trial"
	return c.do(ctx, "status_history.complete_trial", http.MethodPost, path, nil, nil, nil)
}
