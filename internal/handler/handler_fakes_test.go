package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/internal/service"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(payload))
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, rec
}

type fakeStatusService struct {
	result     *dto.StatusChangeResult
	err        error
	customerID string
	claims     *models.SessionClaims
	req        dto.StatusChangeRequest
}

func (f *fakeStatusService) Submit(_ context.Context, claims *models.SessionClaims, customerID string, req dto.StatusChangeRequest) (*dto.StatusChangeResult, error) {
	f.claims = claims
	f.customerID = customerID
	f.req = req
	return f.result, f.err
}

type fakeCustomerService struct {
	sessionKey string
	filter     models.CustomerFilter
	result     *dto.SearchResult
	customer   *models.Customer
	err        error
}

func (f *fakeCustomerService) Search(_ context.Context, sessionKey string, filter models.CustomerFilter) (*dto.SearchResult, error) {
	f.sessionKey = sessionKey
	f.filter = filter
	return f.result, f.err
}

func (f *fakeCustomerService) Get(context.Context, string) (*models.Customer, error) {
	return f.customer, f.err
}

type fakeLedgerService struct {
	view       *dto.LedgerView
	entry      *models.StatusHistoryEntry
	file       *service.LedgerExport
	err        error
	lastFormat string
	lastIDs    [2]string
}

func (f *fakeLedgerService) List(context.Context, string) (*dto.LedgerView, error) {
	return f.view, f.err
}

func (f *fakeLedgerService) UpdateNotes(_ context.Context, customerID, historyID string, _ dto.UpdateNotesRequest) (*models.StatusHistoryEntry, error) {
	f.lastIDs = [2]string{customerID, historyID}
	return f.entry, f.err
}

func (f *fakeLedgerService) UpdateTrialTime(_ context.Context, customerID, historyID string, _ dto.UpdateTrialRequest) (*models.StatusHistoryEntry, error) {
	f.lastIDs = [2]string{customerID, historyID}
	return f.entry, f.err
}

func (f *fakeLedgerService) Delete(_ context.Context, customerID, historyID string) (*dto.LedgerView, error) {
	f.lastIDs = [2]string{customerID, historyID}
	return f.view, f.err
}

func (f *fakeLedgerService) CancelTrial(_ context.Context, customerID, historyID string) (*models.StatusHistoryEntry, error) {
	f.lastIDs = [2]string{customerID, historyID}
	return f.entry, f.err
}

func (f *fakeLedgerService) CompleteTrial(_ context.Context, customerID, historyID string) (*models.StatusHistoryEntry, error) {
	f.lastIDs = [2]string{customerID, historyID}
	return f.entry, f.err
}

func (f *fakeLedgerService) Export(_ context.Context, _ string, rawFormat string) (*service.LedgerExport, error) {
	f.lastFormat = rawFormat
	return f.file, f.err
}

type fakeScheduleService struct {
	week      *dto.WeekSchedule
	templates []models.WeeklyTemplate
	hit       bool
	err       error
	flushed   bool
}

func (f *fakeScheduleService) WeeklySchedules(context.Context, string) (*dto.WeekSchedule, bool, error) {
	return f.week, f.hit, f.err
}

func (f *fakeScheduleService) WeeklyTemplates(context.Context) ([]models.WeeklyTemplate, bool, error) {
	return f.templates, f.hit, f.err
}

func (f *fakeScheduleService) InvalidateAll(context.Context) error {
	f.flushed = true
	return f.err
}

type fakeTrialResolver struct {
	availability dto.CoachAvailability
	eval         dto.TrialSelectionEvaluation
	err          error
	lastDate     time.Time
	lastQuery    dto.TrialSelectionQuery
	lastHistory  []models.StatusHistoryEntry
	lastCanSched bool
}

func (f *fakeTrialResolver) FetchAvailableCoaches(_ context.Context, date time.Time, _ models.TimeRange) (dto.CoachAvailability, error) {
	f.lastDate = date
	return f.availability, f.err
}

func (f *fakeTrialResolver) Evaluate(_ context.Context, history []models.StatusHistoryEntry, q dto.TrialSelectionQuery, canSchedule bool) (dto.TrialSelectionEvaluation, error) {
	f.lastHistory = history
	f.lastQuery = q
	f.lastCanSched = canSchedule
	return f.eval, f.err
}

type fakeHistoryReader struct {
	history []models.StatusHistoryEntry
	err     error
}

func (f *fakeHistoryReader) History(context.Context, string) ([]models.StatusHistoryEntry, error) {
	return f.history, f.err
}

type fakeReminderService struct {
	latest    *models.Todo
	resolved  *models.Todo
	todo      *models.Todo
	err       error
	resolves  int
	cancelled string
}

func (f *fakeReminderService) Latest(string) (*models.Todo, bool) {
	return f.latest, f.latest != nil
}

func (f *fakeReminderService) ResolveExisting(context.Context, string) (*models.Todo, error) {
	f.resolves++
	return f.resolved, f.err
}

func (f *fakeReminderService) Upsert(context.Context, string, dto.UpsertReminderRequest) (*models.Todo, error) {
	return f.todo, f.err
}

func (f *fakeReminderService) CancelForCustomer(_ context.Context, customerID string) error {
	f.cancelled = customerID
	return f.err
}

func (f *fakeReminderService) Cancel(_ context.Context, todoID string) error {
	f.cancelled = todoID
	return f.err
}

func (f *fakeReminderService) Complete(context.Context, string) (*models.Todo, error) {
	return f.todo, f.err
}

func (f *fakeReminderService) CreateManual(context.Context, dto.CreateTodoRequest) (*models.Todo, error) {
	return f.todo, f.err
}

type fixedDue struct{ due dto.DueReminders }

func (f fixedDue) Due() dto.DueReminders { return f.due }

type stubExporter struct{}

func (stubExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("console_up 1\n"))
	})
}
