package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status code and a
// stable machine-readable kind for WebSocket clients.
type AppError struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError of the same kind, so sentinels still match after
// WithMessage or WithDetails produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a new AppError
func New(code int, kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code int, kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithMessage returns a copy of the error carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	clone := *e
	clone.Message = message
	return &clone
}

// WithDetails returns a copy of the error carrying details.
func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// Error kinds
const (
	KindBadRequest        = "bad_request"
	KindValidation        = "validation"
	KindContentRejected   = "content_rejected"
	KindRateLimitExceeded = "rate_limit_exceeded"
	KindRoomNotFound      = "room_not_found"
	KindRoomFull          = "room_full"
	KindWrongPassword     = "wrong_password"
	KindNotPermitted      = "not_permitted"
	KindNotAuthorized     = "not_authorized"
	KindTargetNotFound    = "target_not_found"
	KindEmptyMessage      = "empty"
	KindAlreadyMember     = "already_member"
	KindCannotKickSelf    = "cannot_kick_self"
	KindNotFound          = "not_found"
	KindInternal          = "internal"
)

// Common errors
var (
	// 400 Bad Request
	ErrBadRequest   = New(http.StatusBadRequest, KindBadRequest, "malformed request")
	ErrValidation   = New(http.StatusBadRequest, KindValidation, "validation failed")
	ErrEmptyMessage = New(http.StatusBadRequest, KindEmptyMessage, "message is empty")

	// 401 Unauthorized
	ErrWrongPassword = New(http.StatusUnauthorized, KindWrongPassword, "wrong room password")

	// 403 Forbidden
	ErrNotPermitted  = New(http.StatusForbidden, KindNotPermitted, "you cannot send messages right now")
	ErrNotAuthorized = New(http.StatusForbidden, KindNotAuthorized, "only the room admin can do that")

	// 404 Not Found
	ErrNotFound       = New(http.StatusNotFound, KindNotFound, "resource not found")
	ErrRoomNotFound   = New(http.StatusNotFound, KindRoomNotFound, "room not found")
	ErrTargetNotFound = New(http.StatusNotFound, KindTargetNotFound, "user not found in this room")

	// 409 Conflict
	ErrAlreadyRoomMember = New(http.StatusConflict, KindAlreadyMember, "already a member of this room")

	// 422 Unprocessable Entity
	ErrRoomFull        = New(http.StatusUnprocessableEntity, KindRoomFull, "room is full")
	ErrContentRejected = New(http.StatusUnprocessableEntity, KindContentRejected, "inappropriate content is not allowed")
	ErrCannotKickSelf  = New(http.StatusUnprocessableEntity, KindCannotKickSelf, "you cannot kick yourself")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, KindRateLimitExceeded, "too many rooms created, try again later")

	// 500 Internal Server Error
	ErrInternal = New(http.StatusInternalServerError, KindInternal, "internal server error")
)

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// From returns the AppError in err's chain, or ErrInternal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal
}

// GetHTTPStatus returns the HTTP status code for an error
func GetHTTPStatus(err error) int {
	return From(err).Code
}

// GetMessage returns the error message
func GetMessage(err error) string {
	return From(err).Message
}
