// pkg/registry/registry_test.go
package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-event-automation/internal/common/errors"
)

func TestParse_ValidRegistry(t *testing.T) {
	doc := []byte(`{
		"version": "2026-02",
		"lastUpdated": "2026-02-01",
		"templates": [
			{"id": "confirm-booking", "category": "booking", "name": "Confirm booking", "completionKind": "checkbox", "dayOffset": -42},
			{"id": "place-supplier-order", "category": "orders", "name": "Place order", "completionKind": "amount", "dayOffset": -14, "createsOrder": true, "createsFollowUp": true}
		]
	}`)

	reg, err := Parse(doc)
	require.NoError(t, err)
	assert.Len(t, reg.Templates, 2)
	assert.Equal(t, "confirm-booking", reg.Templates[0].ID)

	tmpl := reg.ByID("place-supplier-order")
	require.NotNil(t, tmpl)
	assert.True(t, tmpl.CreatesOrder)
	assert.True(t, tmpl.CreatesFollowUp)
	require.NotNil(t, tmpl.DayOffset)
	assert.Equal(t, -14, *tmpl.DayOffset)
}

func TestParse_RejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing templates", `{"version": "1"}`},
		{"empty templates", `{"version": "1", "templates": []}`},
		{"missing required field", `{"version": "1", "templates": [{"id": "x", "category": "c", "name": "n"}]}`},
		{"bad completion kind", `{"version": "1", "templates": [{"id": "x", "category": "c", "name": "n", "completionKind": "dropdown"}]}`},
		{"unknown property", `{"version": "1", "templates": [{"id": "x", "category": "c", "name": "n", "completionKind": "text", "extra": true}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_RejectsDuplicateIDs(t *testing.T) {
	doc := []byte(`{
		"version": "1",
		"templates": [
			{"id": "a", "category": "c", "name": "n", "completionKind": "checkbox"},
			{"id": "a", "category": "c", "name": "n2", "completionKind": "checkbox"}
		]
	}`)

	_, err := Parse(doc)
	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRegistryInvalid, stdErr.Code)
}

func TestDefault_OrderedAndWellFormed(t *testing.T) {
	reg := Default()
	require.NotEmpty(t, reg.Templates)

	// The order task spawns both an order and a shipping follow-up.
	tmpl := reg.ByID("place-supplier-order")
	require.NotNil(t, tmpl)
	assert.True(t, tmpl.CreatesOrder)
	assert.True(t, tmpl.CreatesFollowUp)

	// Exactly one manual template exists in the default set.
	manual := 0
	for _, tt := range reg.Templates {
		if tt.DayOffset == nil {
			manual++
		}
	}
	assert.Equal(t, 1, manual)

	assert.Nil(t, reg.ByID("nope"))
}
