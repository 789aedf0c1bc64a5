// internal/common/errors/errors.go

// Package errors provides standardized error handling for the automation
// engines.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeEventNotFound    ErrorCode = "EVENT_NOT_FOUND"
	ErrCodeTaskNotFound     ErrorCode = "TASK_NOT_FOUND"
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"

	ErrCodeTaskAlreadyCompleted ErrorCode = "TASK_ALREADY_COMPLETED"
	ErrCodeInvalidCompletion    ErrorCode = "INVALID_COMPLETION_DATA"

	ErrCodeStoreQueryFailed  ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeStoreWriteFailed  ErrorCode = "STORE_WRITE_FAILED"
	ErrCodeCascadeIncomplete ErrorCode = "CASCADE_INCOMPLETE"

	ErrCodeDeliverySendFailed ErrorCode = "DELIVERY_SEND_FAILED"
	ErrCodeNoRecipients       ErrorCode = "NO_RECIPIENTS_RESOLVED"

	ErrCodeRegistryInvalid ErrorCode = "REGISTRY_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewEventNotFoundError creates a non-retryable missing-event error.
func NewEventNotFoundError(eventID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventNotFound,
		Message:   "Event not found in record store",
		Details:   fmt.Sprintf("eventId: %s", eventID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTaskNotFoundError creates a non-retryable missing-task error.
func NewTaskNotFoundError(taskID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTaskNotFound,
		Message:   "Task not found in record store",
		Details:   fmt.Sprintf("taskId: %s", taskID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable missing-template error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTaskAlreadyCompletedError creates a non-retryable completion error.
// Completion is a one-way transition, never reversed or repeated.
func NewTaskAlreadyCompletedError(taskID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTaskAlreadyCompleted,
		Message:   "Task has already been completed",
		Details:   fmt.Sprintf("taskId: %s", taskID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCompletionError creates a non-retryable validation error.
func NewInvalidCompletionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCompletion,
		Message:   "Completion data validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreQueryFailedError creates a retryable store read error.
func NewStoreQueryFailedError(entity string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreQueryFailed,
		Message:   "Record store query failed",
		Details:   fmt.Sprintf("entity: %s, error: %s", entity, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreWriteFailedError creates a retryable store write error.
func NewStoreWriteFailedError(entity string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreWriteFailed,
		Message:   "Record store write failed",
		Details:   fmt.Sprintf("entity: %s, error: %s", entity, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCascadeIncompleteError marks a cascade that failed after an earlier
// step succeeded. The intermediate state is left for reconciliation and
// the caller must retry the completion, which is idempotent on the
// already-created records.
func NewCascadeIncompleteError(taskID, step string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCascadeIncomplete,
		Message:   "Task completion cascade failed mid-sequence",
		Details:   fmt.Sprintf("taskId: %s, step: %s, error: %s", taskID, step, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"taskId": taskID, "step": step},
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliverySendFailedError creates a retryable provider error.
func NewDeliverySendFailedError(recipient string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliverySendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("recipient: %s, error: %s", recipient, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoRecipientsError creates a non-retryable resolution error.
func NewNoRecipientsError(eventID string, audiences []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoRecipients,
		Message:   "No recipients resolved for event",
		Details:   fmt.Sprintf("eventId: %s, audiences: %s", eventID, strings.Join(audiences, ",")),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRegistryInvalidError creates a non-retryable registry error.
func NewRegistryInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryInvalid,
		Message:   "Task template registry failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsNotFound reports whether err carries one of the missing-entity codes.
func IsNotFound(err error) bool {
	var stdErr *StandardError
	if !errors.As(err, &stdErr) {
		return false
	}
	switch stdErr.Code {
	case ErrCodeEventNotFound, ErrCodeTaskNotFound, ErrCodeTemplateNotFound:
		return true
	}
	return false
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "CASCADE"):
		return "STORE"
	case strings.Contains(codeStr, "DELIVERY") || strings.Contains(codeStr, "RECIPIENTS"):
		return "DELIVERY"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "COMPLETED") || strings.Contains(codeStr, "REGISTRY"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
