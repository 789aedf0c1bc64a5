// internal/models/emailtemplate.go
package models

// EmailTemplate is an externally authored message definition. The engine
// reads everything except the Active flag, which operators may toggle.
type EmailTemplate struct {
	ID                string   `json:"id"`
	Slug              string   `json:"slug"`
	Audiences         []string `json:"audiences"`
	TriggerOffsetDays int      `json:"triggerOffsetDays"` // negative = days before the event
	TriggerHour       int      `json:"triggerHour"`       // 0-23, platform-home timezone
	Subject           string   `json:"subject"`
	Body              string   `json:"body"`
	Active            bool     `json:"active"`
	TierFilter        string   `json:"tierFilter,omitempty"` // exact tier match when set
	MinSize           int      `json:"minSize,omitempty"`    // 0 = no size threshold
}

// Audience types a template may target. Audiences are combinable;
// overlapping audiences never double-send (dedup by email per event).
const (
	AudienceTeacher  = "teacher"
	AudienceParent   = "parent"
	AudienceNonBuyer = "non_buyer"
)

// AppliesTo reports whether the event passes the template's tier/size
// predicate. Lifecycle status is checked by the caller.
func (t *EmailTemplate) AppliesTo(e *Event) bool {
	if t.TierFilter != "" && e.Tier != t.TierFilter {
		return false
	}
	if t.MinSize > 0 && e.Size < t.MinSize {
		return false
	}
	return true
}
