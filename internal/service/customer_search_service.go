package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/pkg/debounce"
)

type customerReader interface {
	ListCustomers(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, *models.Pagination, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
}

// CustomerSearchService answers list keystrokes, running the upstream query once per quiet period
// per console session.
type CustomerSearchService struct {
	upstream  customerReader
	debouncer *debounce.Debouncer
	logger    *zap.Logger
}

// NewCustomerSearchService constructs the search service.
func NewCustomerSearchService(upstream customerReader, debouncer *debounce.Debouncer, logger *zap.Logger) *CustomerSearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerSearchService{upstream: upstream, debouncer: debouncer, logger: logger}
}

// Search lists customers for sessionKey. A non-empty query waits out the debounce period and
// reports Superseded when a newer keystroke replaced it; an empty query runs immediately.
func (s *CustomerSearchService) Search(ctx context.Context, sessionKey string, filter models.CustomerFilter) (*dto.SearchResult, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	result := &dto.SearchResult{Query: filter.Search, Customers: []models.Customer{}}

	run := func(ctx context.Context) error {
		customers, pagination, err := s.upstream.ListCustomers(ctx, filter)
		if err != nil {
			return err
		}
		if customers != nil {
			result.Customers = customers
		}
		result.Pagination = pagination
		return nil
	}

	var err error
	if filter.Search == "" {
		err = s.debouncer.Now(ctx, sessionKey, run)
	} else {
		err = s.debouncer.Do(ctx, sessionKey, run)
	}
	if errors.Is(err, debounce.ErrSuperseded) {
		s.logger.Debug("search superseded", zap.String("query", filter.Search))
		result.Superseded = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns one customer.
func (s *CustomerSearchService) Get(ctx context.Context, id string) (*models.Customer, error) {
	return s.upstream.GetCustomer(ctx, id)
}
