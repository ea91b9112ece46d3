package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/pkg/debounce"
)

func TestSearchDebouncesKeystrokeBursts(t *testing.T) {
	up := newFakeUpstream()
	up.customers = []models.Customer{{ID: "cus-1", Name: "Zhang Wei"}}
	svc := NewCustomerSearchService(up, debounce.New(100*time.Millisecond), nil)

	queries := []string{"z", "zh", "zha", "zhan", "zhang"}
	results := make([]*dto.SearchResult, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			res, err := svc.Search(context.Background(), "session-1", models.CustomerFilter{Search: q})
			assert.NoError(t, err)
			results[i] = res
		}(i, q)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, 1, up.callCount("ListCustomers"))
	assert.Equal(t, "zhang", up.lastFilter.Search)
	for i, res := range results[:len(results)-1] {
		assert.True(t, res.Superseded, fmt.Sprintf("keystroke %d", i))
	}
	last := results[len(results)-1]
	assert.False(t, last.Superseded)
	assert.Len(t, last.Customers, 1)
}

func TestSearchSessionsAreIndependent(t *testing.T) {
	up := newFakeUpstream()
	svc := NewCustomerSearchService(up, debounce.New(20*time.Millisecond), nil)

	var wg sync.WaitGroup
	for _, session := range []string{"a", "b"} {
		wg.Add(1)
		go func(session string) {
			defer wg.Done()
			res, err := svc.Search(context.Background(), session, models.CustomerFilter{Search: "li"})
			assert.NoError(t, err)
			assert.False(t, res.Superseded)
			assert.NotNil(t, res.Customers)
		}(session)
	}
	wg.Wait()
	assert.Equal(t, 2, up.callCount("ListCustomers"))
}

func TestEmptySearchRunsImmediately(t *testing.T) {
	up := newFakeUpstream()
	svc := NewCustomerSearchService(up, debounce.New(time.Second), nil)

	started := time.Now()
	res, err := svc.Search(context.Background(), "session-1", models.CustomerFilter{Search: "   "})
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
	assert.Equal(t, "", res.Query)
	assert.Equal(t, 1, up.callCount("ListCustomers"))
}

func TestGetCustomer(t *testing.T) {
	up := newFakeUpstream()
	up.customers = []models.Customer{{ID: "cus-1", Name: "Zhang Wei", Status: models.StatusNew}}
	svc := NewCustomerSearchService(up, debounce.New(time.Millisecond), nil)

	customer, err := svc.Get(context.Background(), "cus-1")
	require.NoError(t, err)
	assert.Equal(t, "Zhang Wei", customer.Name)
}
