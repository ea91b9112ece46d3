package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

// ContextLoginPathKey holds the console login path a SESSION_EXPIRED error redirects to.
const ContextLoginPathKey = "loginPath"

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure. An expired
// session carries the login path in meta.redirect.
func Error(c *gin.Context, err error) {
	ErrorWithMeta(c, err, nil)
}

// ErrorWithMeta sends an error response that still carries partial results in meta.
func ErrorWithMeta(c *gin.Context, err error, meta map[string]interface{}) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	if appErr.Code == appErrors.ErrSessionExpired.Code {
		if path := c.GetString(ContextLoginPathKey); path != "" {
			if meta == nil {
				meta = map[string]interface{}{}
			}
			meta["redirect"] = path
		}
	}
	c.JSON(appErr.Status, Envelope{Error: appErr, Meta: meta})
}

// Attachment streams a rendered file download.
func Attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
