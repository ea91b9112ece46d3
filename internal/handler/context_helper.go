package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-crm-console/internal/middleware"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/pkg/logger"
	"github.com/noah-isme/training-crm-console/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// consoleSession keys per-tab state such as search debouncing. The tab header is scoped to
// the signed-in operator so another user cannot reuse a tab id to touch the same state.
// Tabs that send no session header share state per bearer token.
func consoleSession(c *gin.Context) string {
	claims := claimsFromContext(c)
	owner := c.ClientIP()
	if claims != nil {
		owner = claims.UserID
	}
	if session := strings.TrimSpace(c.GetHeader(logger.SessionHeader)); session != "" {
		return owner + ":" + session
	}
	if claims != nil {
		return claims.AccessToken
	}
	return owner
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// respond writes data with whatever response meta the request gathered.
func respond(c *gin.Context, status int, data interface{}, pagination *models.Pagination) {
	response.JSON(c, status, data, pagination, middleware.ExtractMeta(c))
}
