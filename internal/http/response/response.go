package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/bibliograph-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps a service error onto the envelope. Errors that
// carry an explicit status keep it; everything else is a 500 under the
// caller's fallback code.
func RespondServiceError(c *gin.Context, fallbackCode string, err error) {
	status, code := apierr.Status(err)
	if status == http.StatusInternalServerError && code == "internal_error" {
		code = fallbackCode
	}
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
