// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/models"
)

// Load reads and validates a task-template registry file.
func Load(path string) (*TaskRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data)
}

// Parse validates raw registry JSON against the schema and decodes it.
func Parse(data []byte) (*TaskRegistry, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(registrySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate registry: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, errors.NewRegistryInvalidError(strings.Join(details, "; "))
	}

	var reg TaskRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	seen := make(map[string]bool, len(reg.Templates))
	for _, tmpl := range reg.Templates {
		if seen[tmpl.ID] {
			return nil, errors.NewRegistryInvalidError("duplicate template id: " + tmpl.ID)
		}
		seen[tmpl.ID] = true
	}

	return &reg, nil
}

func intPtr(v int) *int { return &v }

// Default returns the built-in template list, used when no registry file
// is configured.
func Default() *TaskRegistry {
	return &TaskRegistry{
		Version: "builtin",
		Templates: []models.TaskTemplate{
			{
				ID:             "confirm-booking",
				Category:       "booking",
				Name:           "Confirm booking with school",
				CompletionKind: models.CompletionKindCheckbox,
				DayOffset:      intPtr(-42),
			},
			{
				ID:             "collect-class-lists",
				Category:       "preparation",
				Name:           "Collect class lists",
				Description:    "Class lists and pupil counts from the school office",
				CompletionKind: models.CompletionKindText,
				DayOffset:      intPtr(-28),
			},
			{
				ID:             "schedule-staff",
				Category:       "staffing",
				Name:           "Assign visit staff",
				CompletionKind: models.CompletionKindCheckbox,
				DayOffset:      intPtr(-21),
			},
			{
				ID:              "place-supplier-order",
				Category:        "orders",
				Name:            "Place aggregate supplier order",
				Description:     "Bundle paid parent orders into one supplier order",
				CompletionKind:  models.CompletionKindAmount,
				DayOffset:       intPtr(-14),
				CreatesOrder:    true,
				CreatesFollowUp: true,
			},
			{
				ID:             "pack-materials",
				Category:       "preparation",
				Name:           "Pack visit materials",
				CompletionKind: models.CompletionKindCheckbox,
				DayOffset:      intPtr(-3),
			},
			{
				ID:             "debrief-school",
				Category:       "follow-up",
				Name:           "Send post-visit debrief",
				CompletionKind: models.CompletionKindText,
				DayOffset:      intPtr(7),
			},
			{
				// Manual task: no offset, deadline set by staff by hand.
				ID:             "archive-paperwork",
				Category:       "follow-up",
				Name:           "Archive event paperwork",
				CompletionKind: models.CompletionKindCheckbox,
			},
		},
	}
}
