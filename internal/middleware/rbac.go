package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
	"github.com/noah-isme/training-crm-console/pkg/response"
)

// RequirePositions allows only sessions whose staff position is listed.
func RequirePositions(positions ...models.StaffPosition) gin.HandlerFunc {
	allowed := make(map[models.StaffPosition]struct{}, len(positions))
	for _, p := range positions {
		allowed[p] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := sessionClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrSessionExpired)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Position]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireScheduling allows sessions holding the scheduling capability.
func RequireScheduling() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := sessionClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrSessionExpired)
			c.Abort()
			return
		}
		if !claims.CanSchedule() {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "scheduling permission required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionClaims(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.SessionClaims)
	return claims
}
