// internal/errors/errors.go
package appErrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Machine readable codes returned to the dashboard.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotEditable       = "CAMPAIGN_NOT_EDITABLE"
	CodeLocked            = "CAMPAIGN_LOCKED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeInternal          = "INTERNAL_ERROR"
)

// Error is a business error carrying a code the UI can branch on.
type Error struct {
	Code    string
	Message string
	// Fields holds per-field validation problems.
	Fields map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrNotFound is returned when a record does not exist inside the caller's organization.
type ErrNotFound struct {
	Resource string
	ID       any
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
}

// NewNotFound is the helper constructor for ErrNotFound.
func NewNotFound(resource string, id any) error {
	return &ErrNotFound{Resource: resource, ID: id}
}

// NewCampaignNotFound keeps the campaign specific constructor short.
func NewCampaignNotFound(id int) error {
	return &ErrNotFound{Resource: "campaign", ID: id}
}

func Validation(message string) error {
	return &Error{Code: CodeValidation, Message: message}
}

// ValidationFields reports several field problems at once.
func ValidationFields(fields map[string]string) error {
	return &Error{Code: CodeValidation, Message: "validation failed", Fields: fields}
}

func NotEditable(status string) error {
	return &Error{Code: CodeNotEditable, Message: fmt.Sprintf("campaign cannot be edited in status: %s", status)}
}

func Locked(holder string) error {
	return &Error{Code: CodeLocked, Message: fmt.Sprintf("campaign is locked by %s", holder)}
}

func InvalidTransition(from, to string) error {
	return &Error{Code: CodeInvalidTransition, Message: fmt.Sprintf("cannot move campaign from %s to %s", from, to)}
}

func Forbidden(message string) error {
	return &Error{Code: CodeForbidden, Message: message}
}

func Conflict(message string) error {
	return &Error{Code: CodeConflict, Message: message}
}

func Unauthenticated(message string) error {
	return &Error{Code: CodeUnauthenticated, Message: message}
}

func PayloadTooLarge(message string) error {
	return &Error{Code: CodePayloadTooLarge, Message: message}
}

// CodeOf returns the code for err, or CodeInternal for unknown errors.
func CodeOf(err error) string {
	var nf *ErrNotFound
	if errors.As(err, &nf) {
		return CodeNotFound
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error code to its HTTP status.
func HTTPStatus(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotEditable, CodeLocked, CodeInvalidTransition, CodeConflict:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Write renders err as {"error":{"code":"…","message":"…"}}.
// Internal errors never leak their message.
func Write(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	detail := errorDetail{Code: code, Message: err.Error()}
	var ae *Error
	if errors.As(err, &ae) {
		detail.Fields = ae.Fields
	}
	if code == CodeInternal {
		detail.Message = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(code))
	_ = json.NewEncoder(w).Encode(errorBody{Error: detail})
}
