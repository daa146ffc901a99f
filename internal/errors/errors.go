// Package errors defines the error taxonomy surfaced to API clients.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine readable code sent to clients.
type ErrorCode string

const (
	CodeBadRequest   ErrorCode = "BAD_REQUEST"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeRateLimited  ErrorCode = "RATE_LIMITED"
	CodeInternal     ErrorCode = "INTERNAL_SERVER_ERROR"
)

// Fixed validation messages. Clients and tests match on these strings.
const (
	MsgEmailExists            = "Email already exists"
	MsgUsernameExists         = "Username already exists"
	MsgOrganizationNameExists = "Organization name already exists"
	MsgWalletExists           = "Wallet already exists"
	MsgInvalidCredentials     = "Invalid credentials"
	MsgInvalidSignature       = "Signature does not match wallet address"
	MsgInvalidNonce           = "Invalid or expired sign-in nonce"
	MsgEndBeforeStart         = "End sale time must be greater than start sale time"
	MsgStartInPast            = "Start sale time must be in the future"
	MsgCollectionPublished    = "Collection has been published and cannot be deleted"
	MsgInvalidInviteCode      = "Invalid invite code"
	MsgInviteEmailMismatch    = "Invite code does not match membership email"
)

// ServiceError is an error carrying everything the transport needs to render it.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails returns a copy of e with an extra detail attached.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func newError(code ErrorCode, status int, message string, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: cause}
}

// BadRequest reports malformed input or a violated business rule.
func BadRequest(message string) *ServiceError {
	return newError(CodeBadRequest, http.StatusBadRequest, message, nil)
}

// BadRequestf is BadRequest with formatting.
func BadRequestf(format string, args ...interface{}) *ServiceError {
	return BadRequest(fmt.Sprintf(format, args...))
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Unauthorized"
	}
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

// InvalidToken reports a session token that failed verification.
func InvalidToken(cause error) *ServiceError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, "Invalid or expired token", cause)
}

// Forbidden reports an authenticated caller lacking a capability.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "Forbidden"
	}
	return newError(CodeForbidden, http.StatusForbidden, message, nil)
}

// NotFound reports a missing entity.
func NotFound(resource, id string) *ServiceError {
	msg := resource + " not found"
	if id != "" {
		msg = fmt.Sprintf("%s %q not found", resource, id)
	}
	return newError(CodeNotFound, http.StatusNotFound, msg, nil).WithDetails("id", id)
}

// RateLimitExceeded reports a throttled caller.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests,
		fmt.Sprintf("rate limit of %d requests per %s exceeded", limit, window), nil)
}

// Internal wraps a persistence or dependency failure.
func Internal(message string, cause error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, cause)
}

// InternalFor wraps a failure on a specific entity; the id is carried in details.
func InternalFor(op, entity, id string, cause error) *ServiceError {
	return Internal(fmt.Sprintf("failed to %s %s %s", op, entity, id), cause).WithDetails("id", id)
}

// GetServiceError extracts a ServiceError from the chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// HasCode reports whether err carries code.
func HasCode(err error, code ErrorCode) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}

// IsNotFound reports whether err is a NOT_FOUND service error.
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }
