// internal/common/validation/template.go

// Package validation checks externally authored email-template records
// before the trigger engine trusts them.
package validation

import (
	"fmt"
	"regexp"

	"school-event-automation/internal/models"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var knownAudiences = map[string]bool{
	models.AudienceTeacher:  true,
	models.AudienceParent:   true,
	models.AudienceNonBuyer: true,
}

// ValidateEmailTemplate checks the fields operators author by hand.
// Offsets beyond a year in either direction are almost certainly typos.
func ValidateEmailTemplate(t *models.EmailTemplate) *ValidationResult {
	errors := []ValidationError{}

	if !slugPattern.MatchString(t.Slug) {
		errors = append(errors, ValidationError{
			Field:   "slug",
			Message: "must be lowercase kebab-case",
			Code:    "INVALID_SLUG",
		})
	}
	if len(t.Audiences) == 0 {
		errors = append(errors, ValidationError{
			Field:   "audiences",
			Message: "at least one audience required",
			Code:    "NO_AUDIENCES",
		})
	}
	for _, audience := range t.Audiences {
		if !knownAudiences[audience] {
			errors = append(errors, ValidationError{
				Field:   "audiences",
				Message: fmt.Sprintf("unknown audience: %s", audience),
				Code:    "UNKNOWN_AUDIENCE",
			})
		}
	}
	if t.TriggerHour < 0 || t.TriggerHour > 23 {
		errors = append(errors, ValidationError{
			Field:   "triggerHour",
			Message: "must be between 0 and 23",
			Code:    "HOUR_OUT_OF_RANGE",
		})
	}
	if t.TriggerOffsetDays < -365 || t.TriggerOffsetDays > 365 {
		errors = append(errors, ValidationError{
			Field:   "triggerOffsetDays",
			Message: "must be within a year of the event",
			Code:    "OFFSET_OUT_OF_RANGE",
		})
	}
	if t.Subject == "" {
		errors = append(errors, ValidationError{
			Field:   "subject",
			Message: "required field missing",
			Code:    "REQUIRED_FIELD_MISSING",
		})
	}
	if t.Body == "" {
		errors = append(errors, ValidationError{
			Field:   "body",
			Message: "required field missing",
			Code:    "REQUIRED_FIELD_MISSING",
		})
	}
	if t.MinSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "minSize",
			Message: "must not be negative",
			Code:    "NEGATIVE_SIZE",
		})
	}

	return &ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

// Describe flattens a result into one line for logs.
func (r *ValidationResult) Describe() string {
	if r.Valid {
		return "valid"
	}
	msg := ""
	for i, e := range r.Errors {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return msg
}
