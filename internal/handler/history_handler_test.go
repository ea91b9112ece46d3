package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/internal/service"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

func TestHistoryExportStreamsAttachment(t *testing.T) {
	svc := &fakeLedgerService{file: &service.LedgerExport{
		Filename:    "status_history_cust-1.csv",
		ContentType: "text/csv; charset=utf-8",
		Body:        []byte("a,b\n"),
	}}
	h := NewHistoryHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/customers/cust-1/status-history/export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "cust-1"}}

	h.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", svc.lastFormat)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "status_history_cust-1.csv")
	assert.Equal(t, "a,b\n", rec.Body.String())
}

func TestHistoryExportUnsupportedFormat(t *testing.T) {
	h := NewHistoryHandler(&fakeLedgerService{err: appErrors.ErrUnsupportedType})

	c, rec := newTestContext(http.MethodGet, "/customers/cust-1/status-history/export?format=xlsx", nil)

	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryCancelTrialTerminalConflict(t *testing.T) {
	svc := &fakeLedgerService{err: appErrors.ErrTrialTerminal}
	h := NewHistoryHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/customers/cust-1/status-history/h1/cancel-trial", nil)
	c.Params = gin.Params{{Key: "id", Value: "cust-1"}, {Key: "historyId", Value: "h1"}}

	h.CancelTrial(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, [2]string{"cust-1", "h1"}, svc.lastIDs)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "TRIAL_TERMINAL", env.Error.Code)
}

func TestHistoryDeleteReturnsReloadedLedger(t *testing.T) {
	svc := &fakeLedgerService{view: &dto.LedgerView{CustomerID: "cust-1", CurrentStatus: models.StatusContacted}}
	h := NewHistoryHandler(svc)

	c, rec := newTestContext(http.MethodDelete, "/customers/cust-1/status-history/h2", nil)
	c.Params = gin.Params{{Key: "id", Value: "cust-1"}, {Key: "historyId", Value: "h2"}}

	h.Delete(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"currentStatus":"CONTACTED"`)
}

func TestHistoryUpdateTrialBindsPayload(t *testing.T) {
	svc := &fakeLedgerService{entry: &models.StatusHistoryEntry{ID: "h1"}}
	h := NewHistoryHandler(svc)

	c, rec := newTestContext(http.MethodPut, "/customers/cust-1/status-history/h1/trial", map[string]string{
		"trialScheduleDate": "2024-06-07",
		"trialStartTime":    "09:00",
		"trialEndTime":      "09:30",
	})
	c.Params = gin.Params{{Key: "id", Value: "cust-1"}, {Key: "historyId", Value: "h1"}}

	h.UpdateTrial(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]string{"cust-1", "h1"}, svc.lastIDs)
}
