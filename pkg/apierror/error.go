package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chatbot-economy-api/internal/model"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int           `json:"-"`
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Details    []FieldError  `json:"details,omitempty"`
	RetryAfter time.Duration `json:"-"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// WithDetails adds field-level error details.
func (e *Error) WithDetails(details ...FieldError) *Error {
	e.Details = details
	return e
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
		},
	}

	if len(e.Details) > 0 {
		response["error"].(map[string]interface{})["details"] = e.Details
	}
	if e.RetryAfter > 0 {
		response["error"].(map[string]interface{})["retry_after_seconds"] = int64(e.RetryAfter.Round(time.Second) / time.Second)
	}

	data, _ := json.Marshal(response)
	return data
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
	}
}

// ValidationError creates a 400 error with validation details.
func ValidationError(message string, details ...FieldError) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Details:    details,
	}
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message string) *Error {
	if message == "" {
		message = "Access denied"
	}
	return &Error{
		StatusCode: http.StatusForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
	}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    message,
	}
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *Error {
	return &Error{
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
		Message:    message,
	}
}

// TooManyRequests creates a 429 Too Many Requests error.
func TooManyRequests(message string) *Error {
	if message == "" {
		message = "Too many requests"
	}
	return &Error{
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMITED",
		Message:    message,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
	}
}

// ServiceUnavailable creates a 503 Service Unavailable error.
func ServiceUnavailable(message string) *Error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    message,
	}
}

// FromDomain maps an economy error to its HTTP form.
// Errors without a known kind become a 500.
func FromDomain(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var claimed *model.AlreadyClaimedError
	if errors.As(err, &claimed) {
		e := Conflict(err.Error())
		e.Code = "ALREADY_CLAIMED"
		e.RetryAfter = claimed.TimeUntilReset
		return e
	}

	if errors.Is(err, model.ErrStoreUnavailable) {
		e := ServiceUnavailable("Store unavailable, please retry")
		e.Code = "STORE_UNAVAILABLE"
		return e
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return &Error{StatusCode: m.status, Code: m.code, Message: err.Error()}
		}
	}
	return InternalError("")
}

var domainErrors = []struct {
	err    error
	status int
	code   string
}{
	{model.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{model.ErrSelfTarget, http.StatusBadRequest, "SELF_TARGET"},
	{model.ErrBetTooSmall, http.StatusBadRequest, "BET_TOO_SMALL"},
	{model.ErrInsufficientFunds, http.StatusConflict, "INSUFFICIENT_FUNDS"},
	{model.ErrInsufficientBankFunds, http.StatusConflict, "INSUFFICIENT_BANK_FUNDS"},
	{model.ErrBankOverflow, http.StatusConflict, "BANK_OVERFLOW"},
	{model.ErrRobberTooPoor, http.StatusConflict, "ROBBER_TOO_POOR"},
	{model.ErrVictimTooPoor, http.StatusConflict, "VICTIM_TOO_POOR"},
	{model.ErrLoanNotFound, http.StatusNotFound, "LOAN_NOT_FOUND"},
	{model.ErrUnknownItem, http.StatusNotFound, "UNKNOWN_ITEM"},
	{model.ErrInsufficientItems, http.StatusConflict, "INSUFFICIENT_ITEMS"},
	{model.ErrItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
	{model.ErrItemExpired, http.StatusConflict, "ITEM_EXPIRED"},
	{model.ErrItemNotGiftable, http.StatusConflict, "ITEM_NOT_GIFTABLE"},
	{model.ErrItemNotUsable, http.StatusConflict, "ITEM_NOT_USABLE"},
	{model.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
	{model.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN"},
	{model.ErrRequestNotFound, http.StatusNotFound, "REQUEST_NOT_FOUND"},
	{model.ErrDuplicateRequest, http.StatusConflict, "DUPLICATE_REQUEST"},
}
