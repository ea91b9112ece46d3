package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
	"github.com/noah-isme/training-crm-console/pkg/response"
	"github.com/noah-isme/training-crm-console/pkg/upstream"
)

// ContextUserKey is the gin context key storing the session claims.
const ContextUserKey = "currentUser"

var jwtNow = time.Now

// SessionOptions configures Session.
type SessionOptions struct {
	// Secret verifies the HS256 signature. When empty the token is only decoded and the
	// upstream API remains the authority.
	Secret    string
	LoginPath string
}

// Session requires a bearer token, exposes its claims to handlers and forwards the token
// to every upstream call made with the request context.
func Session(opts SessionOptions) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	return func(c *gin.Context) {
		if opts.LoginPath != "" {
			c.Set(response.ContextLoginPathKey, opts.LoginPath)
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.ErrSessionExpired)
			c.Abort()
			return
		}

		claims, err := parseClaims(parser, opts.Secret, token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		claims.AccessToken = token

		c.Set(ContextUserKey, claims)
		c.Request = c.Request.WithContext(upstream.WithToken(c.Request.Context(), token))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func parseClaims(parser *jwt.Parser, secret, token string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	if secret == "" {
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "malformed session token")
		}
		if exp := claims.ExpiresAt; exp != nil && exp.Before(jwtNow()) {
			return nil, appErrors.ErrSessionExpired
		}
		return claims, nil
	}

	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, appErrors.ErrSessionExpired
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token")
	}
}
