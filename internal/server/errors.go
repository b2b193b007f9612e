package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apikeydomain "github.com/smallbiznis/staydesk/internal/apikey/domain"
	assistantdomain "github.com/smallbiznis/staydesk/internal/assistant/domain"
	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	"github.com/smallbiznis/staydesk/internal/gate"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
	lifecycledomain "github.com/smallbiznis/staydesk/internal/lifecycle/domain"
	messagingdomain "github.com/smallbiznis/staydesk/internal/messaging/domain"
	paymentdomain "github.com/smallbiznis/staydesk/internal/payment/domain"
	roomdomain "github.com/smallbiznis/staydesk/internal/room/domain"
	staffdomain "github.com/smallbiznis/staydesk/internal/staff/domain"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/tier"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
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
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrUnauthorized   = apikeydomain.ErrUnauthorized
	ErrForbidden      = errors.New("forbidden")
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
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var denied *gate.DeniedError
	if errors.As(err, &denied) {
		return http.StatusForbidden, errorPayload{
			Type:    string(denied.Decision.Code),
			Message: denied.Decision.Reason,
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "missing or invalid api key",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "api key not allowed for this request",
		}
	case errors.Is(err, credentialdomain.ErrMissingPaymentAccount):
		return http.StatusConflict, errorPayload{
			Type:    "payment_account_required",
			Message: "connect a payment account before taking guest payments",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, lifecycledomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "invalid signature",
		}
	case errors.Is(err, lifecycledomain.ErrWebhookNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "webhook not configured",
		}
	case errors.Is(err, usagedomain.ErrLedgerUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "temporarily unavailable, try again",
		}
	case errors.Is(err, integrationdomain.ErrUpstream):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "provider request failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// isValidationError covers inbound parse failures. tier.ErrUnknownTier from a
// stored row is not one of these and stays a 500.
func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tier.ErrUnknownChannel),
		errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, apikeydomain.ErrInvalidName),
		errors.Is(err, apikeydomain.ErrInvalidKind),
		errors.Is(err, apikeydomain.ErrInvalidKeyID),
		errors.Is(err, tenantdomain.ErrInvalidTenant),
		errors.Is(err, tenantdomain.ErrInvalidPaymentAccount),
		errors.Is(err, tenantdomain.ErrInvalidCredentials),
		errors.Is(err, roomdomain.ErrInvalidNumber),
		errors.Is(err, staffdomain.ErrInvalidEmail),
		errors.Is(err, staffdomain.ErrInvalidRole),
		errors.Is(err, assistantdomain.ErrEmptyMessage),
		errors.Is(err, messagingdomain.ErrMissingRecipient),
		errors.Is(err, messagingdomain.ErrMissingContent),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrMissingReference),
		errors.Is(err, paymentdomain.ErrInvalidRedirect),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, lifecycledomain.ErrInvalidPayload),
		errors.Is(err, lifecycledomain.ErrInvalidEvent),
		errors.Is(err, integrationdomain.ErrInvalidRequest):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, tenantdomain.ErrSlugTaken),
		errors.Is(err, tenantdomain.ErrSubscriptionLinked),
		errors.Is(err, apikeydomain.ErrOwnerKeyProtected),
		errors.Is(err, roomdomain.ErrRoomExists),
		errors.Is(err, staffdomain.ErrUserExists):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, tenantdomain.ErrTenantNotFound),
		errors.Is(err, apikeydomain.ErrKeyNotFound),
		errors.Is(err, roomdomain.ErrRoomNotFound),
		errors.Is(err, staffdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "missing_recipient":
		return "to"
	case "missing_content":
		return "body"
	case "missing_reference":
		return "reference"
	case "empty_message":
		return "guest_message"
	case "unknown_channel":
		return "channel"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// classifyErrorForLog labels request failures in access logs.
func classifyErrorForLog(err error) string {
	_, payload := mapError(err)
	return payload.Type
}
