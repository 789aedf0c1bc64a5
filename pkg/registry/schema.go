// pkg/registry/schema.go
package registry

import "school-event-automation/internal/models"

// TaskRegistry is the fixed ordered list of task templates the cascade
// engine instantiates per event. Order is meaningful and preserved.
type TaskRegistry struct {
	Version     string                `json:"version"`
	LastUpdated string                `json:"lastUpdated"`
	Templates   []models.TaskTemplate `json:"templates"`
}

// ByID returns the template with the given id, or nil.
func (r *TaskRegistry) ByID(id string) *models.TaskTemplate {
	for i := range r.Templates {
		if r.Templates[i].ID == id {
			return &r.Templates[i]
		}
	}
	return nil
}

// registrySchema validates registry documents before they are trusted.
const registrySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "templates"],
  "properties": {
    "version": {"type": "string"},
    "lastUpdated": {"type": "string"},
    "templates": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "category", "name", "completionKind"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "category": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "completionKind": {"type": "string", "enum": ["checkbox", "amount", "text"]},
          "dayOffset": {"type": "integer"},
          "createsOrder": {"type": "boolean"},
          "createsFollowUp": {"type": "boolean"}
        },
        "additionalProperties": false
      }
    }
  }
}`
