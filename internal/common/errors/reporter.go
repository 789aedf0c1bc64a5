// internal/common/errors/reporter.go
package errors

import "time"

// Logger is the minimal logging surface the reporter needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Reporter is the best-effort side channel for audit failures: errors are
// normalized, logged and counted, never propagated to the caller of the
// main operation.
type Reporter struct {
	logger Logger
}

func NewReporter(logger Logger) *Reporter {
	return &Reporter{logger: logger}
}

// Report logs a normalized error with its category and context fields.
func (r *Reporter) Report(err error, context map[string]interface{}) {
	stdErr := Normalize(err)

	fields := map[string]interface{}{
		"code":      string(stdErr.Code),
		"category":  GetErrorCategory(stdErr.Code),
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	}
	for k, v := range context {
		fields[k] = v
	}

	if stdErr.Retryable {
		r.logger.Warn(stdErr.Message, fields)
		return
	}
	r.logger.Error(stdErr.Message, fields)
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
