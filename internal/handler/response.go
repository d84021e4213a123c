package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freightx/internal/domain"
	"freightx/internal/middleware"
	"freightx/internal/provider"
	"freightx/internal/service"
)

// APIResponse is the standard envelope for error responses and listing endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes. The message
// is always the error's own text.
func MapDomainError(err error) (status int, code, msg string) {
	msg = errorMessage(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "TIMEOUT", msg
	case errors.Is(err, domain.ErrMissingDocument):
		return http.StatusBadRequest, "MISSING_FILE", msg
	case errors.Is(err, domain.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", msg
	case errors.Is(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest, "INVALID_CONFIG", msg
	case errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusBadRequest, "UNKNOWN_PROVIDER", msg
	case errors.Is(err, domain.ErrUnparsableDocument):
		return http.StatusUnprocessableEntity, "UNPARSABLE_DOCUMENT", msg
	case errors.Is(err, domain.ErrMissingCredential):
		return http.StatusInternalServerError, "MISSING_CREDENTIAL", msg
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", msg
	case errors.Is(err, domain.ErrUpload):
		return http.StatusBadGateway, "UPLOAD_FAILED", msg
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusBadGateway, "PROVIDER_AUTH_FAILED", msg
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", msg
	case errors.Is(err, domain.ErrTransport):
		return http.StatusGatewayTimeout, "PROVIDER_UNREACHABLE", msg
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway, "PROVIDER_ERROR", msg
	case errors.Is(err, domain.ErrEmptyResponse):
		return http.StatusBadGateway, "EMPTY_RESPONSE", msg
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", msg
	}
}

// errorMessage strips the stage wrapper so clients see the underlying cause.
func errorMessage(err error) string {
	var se *service.StageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, logger *zap.Logger, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		logger.Error("handler.HandleError: request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("code", code),
			zap.Error(err))
	}
	if status == http.StatusTooManyRequests {
		if wait, ok := provider.RetryAfter(err); ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
	}
	RespondError(c, status, code, msg)
}
