package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched with errors.Is. Every constructor below wraps one of them.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotPermitted       = errors.New("not permitted")
	ErrNoMainItem         = errors.New("no main item selected")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrUnknownItem        = errors.New("unknown menu item")
	ErrInvalidCatalog     = errors.New("invalid catalog")
	ErrLeadTimeViolation  = errors.New("lead time violation")
	ErrRemoteRejected     = errors.New("rejected by backend")
	ErrNotFound           = errors.New("not found")
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, cause)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
		Err:        ErrNotFound,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInvalidCredentials is returned when the backend rejects a username/password pair.
func NewInvalidCredentials() error {
	return &DomainError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "no active account found with the given credentials",
		HTTPStatus: http.StatusUnauthorized,
		Err:        ErrInvalidCredentials,
	}
}

func NewInvalidToken(reason string) error {
	return &DomainError{
		Code:       "INVALID_TOKEN",
		Message:    reason,
		HTTPStatus: http.StatusUnauthorized,
		Err:        ErrInvalidToken,
	}
}

// NewSessionExpired signals that the session could not be renewed and has been cleared.
func NewSessionExpired(cause error) error {
	return &DomainError{
		Code:       "SESSION_EXPIRED",
		Message:    "session expired, please log in again",
		HTTPStatus: http.StatusUnauthorized,
		Err:        wrap(ErrSessionExpired, cause),
	}
}

func NewNotAuthenticated() error {
	return &DomainError{
		Code:       "NOT_AUTHENTICATED",
		Message:    "login required",
		HTTPStatus: http.StatusUnauthorized,
		Err:        ErrNotAuthenticated,
	}
}

func NewNotPermitted(message string) error {
	return &DomainError{
		Code:       "NOT_PERMITTED",
		Message:    message,
		HTTPStatus: http.StatusForbidden,
		Err:        ErrNotPermitted,
	}
}

func NewNoMainItem() error {
	return &DomainError{
		Code:       "NO_MAIN_ITEM",
		Message:    "please select a main food item",
		HTTPStatus: http.StatusBadRequest,
		Err:        ErrNoMainItem,
	}
}

func NewInsufficientBudget(cost, budget string) error {
	return &DomainError{
		Code:       "INSUFFICIENT_BUDGET",
		Message:    "you cannot afford this meal with your current budget",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"cost": cost, "budget": budget},
		Err:        ErrInsufficientBudget,
	}
}

func NewUnknownItem(kind string, id int64) error {
	return &DomainError{
		Code:       "UNKNOWN_ITEM",
		Message:    fmt.Sprintf("%s %d is not on this menu", kind, id),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"kind": kind, "id": id},
		Err:        ErrUnknownItem,
	}
}

func NewInvalidCatalog(message string, details map[string]any) error {
	return &DomainError{
		Code:       "INVALID_CATALOG",
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    details,
		Err:        ErrInvalidCatalog,
	}
}

func NewLeadTimeViolation(leadDays int) error {
	return &DomainError{
		Code:       "LEAD_TIME_VIOLATION",
		Message:    fmt.Sprintf("orders must be placed or cancelled at least %d days in advance", leadDays),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"lead_days": leadDays},
		Err:        ErrLeadTimeViolation,
	}
}

// NewRemoteError carries a backend rejection. The message is shown to the user as-is.
func NewRemoteError(status int, message string, details map[string]any) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &DomainError{
		Code:       "REMOTE_REJECTED",
		Message:    message,
		HTTPStatus: status,
		Details:    details,
		Err:        ErrRemoteRejected,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewDomainError("TIMEOUT", "request timed out", http.StatusGatewayTimeout, nil)
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
