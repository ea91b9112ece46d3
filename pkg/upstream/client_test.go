package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/pkg/config"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

type observerStub struct {
	outcomes []string
}

func (o *observerStub) ObserveUpstreamCall(endpoint, outcome string, duration time.Duration) {
	o.outcomes = append(o.outcomes, endpoint+":"+outcome)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *observerStub) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	obs := &observerStub{}
	return NewClient(config.UpstreamConfig{BaseURL: server.URL, Timeout: time.Second}, nil, WithObserver(obs)), obs
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": success, "data": data, "message": message})
}

func TestChangeStatusForwardsTokenAndBody(t *testing.T) {
	var gotAuth string
	var gotBody dto.StatusChangePayload
	client, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/customers/cus-1/status-history/change", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		writeEnvelope(w, http.StatusOK, true, map[string]interface{}{"id": "h-1", "toStatus": "VISITED"}, "")
	})

	ctx := WithToken(context.Background(), "tok-123")
	entry, err := client.ChangeStatus(ctx, "cus-1", dto.StatusChangePayload{ToStatus: models.StatusVisited, Notes: "came in"})
	require.NoError(t, err)
	assert.Equal(t, "h-1", entry.ID)
	assert.Equal(t, "cus-1", entry.CustomerID)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "came in", gotBody.Notes)
	assert.Nil(t, gotBody.TrialCoachID)
	assert.Equal(t, []string{"status_history.change:ok"}, obs.outcomes)
}

func TestUnauthorizedMapsToSessionExpired(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, false, nil, "token expired")
	})

	_, err := client.ListStatusHistory(context.Background(), "cus-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSessionExpired))
}

func TestRejectedEnvelopeCarriesServerMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, nil, "客户不存在")
	})

	_, err := client.ChangeStatus(context.Background(), "cus-1", dto.StatusChangePayload{ToStatus: models.StatusSold})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErr.Code)
	assert.Equal(t, "客户不存在", appErr.Message)
}

func TestServerErrorWithoutMessageUsesGenericMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	err := client.DeleteHistory(context.Background(), "h-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Message, appErrors.FromError(err).Message)
}

func TestNoRetryOnFailure(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.AvailableCoaches(context.Background(), "2024-06-01", "10:00", "10:30")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLatestTodoNullData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/todos/customer/cus-9/latest", r.URL.Path)
		writeEnvelope(w, http.StatusOK, true, nil, "")
	})

	todo, err := client.LatestTodoForCustomer(context.Background(), "cus-9")
	require.NoError(t, err)
	assert.Nil(t, todo)
}

func TestAvailableCoachesQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("date"))
		assert.Equal(t, "10:00", r.URL.Query().Get("startTime"))
		assert.Equal(t, "10:30", r.URL.Query().Get("endTime"))
		writeEnvelope(w, http.StatusOK, true, []map[string]string{}, "")
	})

	coaches, err := client.AvailableCoaches(context.Background(), "2024-06-01", "10:00", "10:30")
	require.NoError(t, err)
	assert.NotNil(t, coaches)
	assert.Empty(t, coaches)
}

func TestListTodosSendsDueBeforeAsRFC3339(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/todos", r.URL.Path)
		gotQuery = r.URL.Query()
		writeEnvelope(w, http.StatusOK, true, []map[string]interface{}{{"id": "t-1", "status": "PENDING"}}, "")
	})

	shanghai := time.FixedZone("CST", 8*3600)
	todos, err := client.ListTodos(context.Background(), models.TodoPending, time.Date(2024, 6, 5, 20, 0, 0, 0, shanghai))
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, []string{"PENDING"}, gotQuery["status"])
	assert.Equal(t, []string{"2024-06-05T12:00:00Z"}, gotQuery["dueBefore"])

	_, err = client.ListTodos(context.Background(), models.TodoPending, time.Time{})
	require.NoError(t, err)
	assert.NotContains(t, gotQuery, "dueBefore")
}
