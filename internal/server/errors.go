package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	governancedomain "github.com/dealerdesk/platform/internal/governance/domain"
	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	"github.com/dealerdesk/platform/internal/policy"
	reconciliationdomain "github.com/dealerdesk/platform/internal/reconciliation/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrUnauthenticated),
		errors.Is(err, policy.ErrUnauthenticated),
		errors.Is(err, reconciliationdomain.ErrUnauthenticated),
		errors.Is(err, governancedomain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, reconciliationdomain.ErrReconciliationFailed):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "reconciliation failed",
		}
	case errors.Is(err, reconciliationdomain.ErrValidationFailed),
		errors.Is(err, governancedomain.ErrValidationFailed):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: "validation failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, identitydomain.ErrAccountInactive),
		errors.Is(err, policy.ErrInsufficientRole),
		errors.Is(err, policy.ErrCompanyTypeNotAuthorized),
		errors.Is(err, policy.ErrNoCompanyAssociation),
		errors.Is(err, policy.ErrCrossTenantAccess),
		errors.Is(err, reconciliationdomain.ErrForbidden),
		errors.Is(err, reconciliationdomain.ErrCompanySuspended),
		errors.Is(err, reconciliationdomain.ErrCrossTenantAccess),
		errors.Is(err, governancedomain.ErrInsufficientPermission),
		errors.Is(err, governancedomain.ErrCompanySuspended),
		errors.Is(err, governancedomain.ErrCannotEscalate),
		errors.Is(err, governancedomain.ErrSelfModificationNotAllowed):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, reconciliationdomain.ErrNotFound),
		errors.Is(err, governancedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}
