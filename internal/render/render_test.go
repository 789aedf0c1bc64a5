// internal/render/render_test.go
package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRender_Substitution(t *testing.T) {
	anchor := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		tmpl string
		data map[string]interface{}
		want string
	}{
		{
			name: "plain fields",
			tmpl: "Hello {{contact_name}}, see you at {{school_name}}.",
			data: map[string]interface{}{"contact_name": "Ms Hart", "school_name": "Northfield Primary"},
			want: "Hello Ms Hart, see you at Northfield Primary.",
		},
		{
			name: "event date",
			tmpl: "The visit is on {{event_date}}.",
			data: nil,
			want: "The visit is on Sunday, 15 March 2026.",
		},
		{
			name: "event date minus days",
			tmpl: "Order deadline: {{event_date-7}}.",
			data: nil,
			want: "Order deadline: Sunday, 8 March 2026.",
		},
		{
			name: "event date plus days",
			tmpl: "Photos arrive around {{event_date+14}}.",
			data: nil,
			want: "Photos arrive around Sunday, 29 March 2026.",
		},
		{
			name: "integer value",
			tmpl: "{{size}} pupils expected.",
			data: map[string]interface{}{"size": 84},
			want: "84 pupils expected.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, tt.data, anchor))
		})
	}
}

func TestRender_StripsUnresolvedPlaceholders(t *testing.T) {
	anchor := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	got := Render("Hi {{parent_name}}, ref {{unknown_field}} end.", map[string]interface{}{
		"parent_name": "Alex",
	}, anchor)

	assert.NotContains(t, got, "{{unknown_field}}")
	assert.NotContains(t, got, "{{")
	assert.Equal(t, "Hi Alex, ref  end.", got)
}

func TestRender_ZeroAnchorLeavesNoDateToken(t *testing.T) {
	got := Render("Visit on {{event_date}}.", nil, time.Time{})
	assert.NotContains(t, got, "{{")
}

func TestRender_NilValueStripped(t *testing.T) {
	got := Render("x{{field}}y", map[string]interface{}{"field": nil}, time.Time{})
	assert.Equal(t, "xy", got)
}
