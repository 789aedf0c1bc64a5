// internal/models/task.go
package models

import "time"

// Task is one unit of operational work tied to an Event. Tasks are created
// in bulk by the cascade engine (or ad hoc), completed exactly once, and
// never deleted.
type Task struct {
	ID             string     `json:"id"`
	EventID        string     `json:"eventId"`
	TemplateID     string     `json:"templateId"`
	Category       string     `json:"category"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	CompletionKind string     `json:"completionKind"` // "checkbox", "amount", "text"
	DayOffset      *int       `json:"dayOffset,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Status         string     `json:"status"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CompletedBy    string     `json:"completedBy,omitempty"`
	CompletionData string     `json:"completionData,omitempty"` // serialized payload
	OrderID        string     `json:"orderId,omitempty"`
	ParentTaskID   string     `json:"parentTaskId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Task statuses. The only legal transition is pending -> completed.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Completion-input kinds.
const (
	CompletionKindCheckbox = "checkbox"
	CompletionKindAmount   = "amount"
	CompletionKindText     = "text"
)

// Manual reports whether the task carries no day offset. Manual tasks keep
// whatever deadline they were given when the event is rescheduled.
func (t *Task) Manual() bool {
	return t.DayOffset == nil
}

// TaskTemplate is one entry of the fixed ordered cascade registry: the
// behavior selector for tasks generated per event.
type TaskTemplate struct {
	ID              string `json:"id"`
	Category        string `json:"category"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	CompletionKind  string `json:"completionKind"`
	DayOffset       *int   `json:"dayOffset,omitempty"`
	CreatesOrder    bool   `json:"createsOrder,omitempty"`
	CreatesFollowUp bool   `json:"createsFollowUp,omitempty"`
}
