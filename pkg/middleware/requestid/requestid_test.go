package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, inbound string) (string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(headerKey, inbound)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return seen, w.Header().Get(headerKey)
}

func TestKeepsInboundID(t *testing.T) {
	seen, header := serve(t, "console-req-1")
	assert.Equal(t, "console-req-1", seen)
	assert.Equal(t, "console-req-1", header)
}

func TestAssignsUUIDWhenMissingOrOversized(t *testing.T) {
	seen, header := serve(t, "")
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, header)

	seen, _ = serve(t, strings.Repeat("x", maxLength+1))
	_, err = uuid.Parse(seen)
	assert.NoError(t, err)
}
