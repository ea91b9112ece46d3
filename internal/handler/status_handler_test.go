package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/middleware"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

func TestStatusHandlerSubmitPassesClaimsAndPath(t *testing.T) {
	svc := &fakeStatusService{result: &dto.StatusChangeResult{CustomerID: "cust-1", Outcome: dto.OutcomePartial}}
	h := NewStatusHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/customers/cust-1/status-changes", map[string]interface{}{
		"toStatus": "CONTACTED",
		"notes":    "called back",
	})
	c.Params = gin.Params{{Key: "id", Value: "cust-1"}}
	claims := &models.SessionClaims{UserID: "staff-1", Position: models.PositionSales}
	c.Set(middleware.ContextUserKey, claims)

	h.Submit(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cust-1", svc.customerID)
	assert.Same(t, claims, svc.claims)
	assert.Equal(t, models.StatusContacted, svc.req.TargetStatus)
	assert.Contains(t, rec.Body.String(), `"outcome":"PARTIAL"`)
}

func TestStatusHandlerRejectedEntryCarriesResult(t *testing.T) {
	svc := &fakeStatusService{
		result: &dto.StatusChangeResult{CustomerID: "cust-1", Outcome: dto.OutcomeFailed},
		err:    appErrors.Clone(appErrors.ErrUpstream, "status rejected"),
	}
	h := NewStatusHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/customers/cust-1/status-changes", map[string]interface{}{"toStatus": "SOLD"})
	c.Params = gin.Params{{Key: "id", Value: "cust-1"}}

	h.Submit(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UPSTREAM_ERROR", env.Error.Code)
	result, ok := env.Meta["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "FAILED", result["outcome"])
}

func TestStatusHandlerInvalidJSON(t *testing.T) {
	h := NewStatusHandler(&fakeStatusService{})

	c, rec := newTestContext(http.MethodPost, "/customers/cust-1/status-changes", nil)
	c.Request.Header.Set("Content-Type", "application/json")

	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusHandlerExpiredSessionRedirects(t *testing.T) {
	h := NewStatusHandler(&fakeStatusService{err: appErrors.ErrSessionExpired})

	c, rec := newTestContext(http.MethodPost, "/customers/cust-1/status-changes", map[string]interface{}{"toStatus": "SOLD"})
	c.Set("loginPath", "/login")

	h.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "/login", env.Meta["redirect"])
}
