package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verisafe/humancheck/internal/common/errors"
)

// ErrorResponse is the wire format for failed operations. The flat shape
// (success/error/errorCode/...) is what verification clients consume.
type ErrorResponse struct {
	Success      bool           `json:"success"`
	Error        string         `json:"error"`
	ErrorCode    string         `json:"errorCode"`
	ErrorMessage string         `json:"errorMessage"`
	Retryable    bool           `json:"retryable"`
	RequestID    string         `json:"requestId,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// RespondOK sends a 200 response with the given payload. Payloads carry
// their own success flag.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondJSON sends a payload with an explicit status code.
func RespondJSON(c *gin.Context, statusCode int, payload any) {
	c.JSON(statusCode, payload)
}

// RespondError sends an error JSON response.
// Handles both *errors.AppError and generic errors; unknown errors are
// normalized to SERVER_ERROR so internals never leak to callers.
func RespondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.ServerError(err)
	}

	c.JSON(appErr.StatusCode, ErrorResponse{
		Success:      false,
		Error:        appErr.Code,
		ErrorCode:    appErr.Code,
		ErrorMessage: appErr.Message,
		Retryable:    appErr.Retryable,
		RequestID:    GetRequestID(c),
		Details:      appErr.Details,
	})
}
