// internal/models/event.go
package models

import "time"

// Event is one school visit, the anchor every deadline and trigger
// threshold is computed from.
type Event struct {
	ID           string    `json:"id"`
	SchoolName   string    `json:"schoolName"`
	Date         time.Time `json:"date"`
	Tier         string    `json:"tier"` // "standard", "premium", "partner"
	Size         int       `json:"size"` // expected number of pupils
	Status       string    `json:"status"`
	TeacherIDs   []string  `json:"teacherIds,omitempty"`
	ContactName  string    `json:"contactName,omitempty"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	StaffIDs     []string  `json:"staffIds,omitempty"`
	ClassIDs     []string  `json:"classIds,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Event statuses. Events are never hard-deleted; "deleted" is a tombstone.
const (
	EventStatusActive    = "active"
	EventStatusCancelled = "cancelled"
	EventStatusDeleted   = "deleted"
)

// Live reports whether the event should still drive automation.
func (e *Event) Live() bool {
	return e.Status == EventStatusActive
}
