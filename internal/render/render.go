// internal/render/render.go

// Package render substitutes {{field}} placeholders in message templates.
// Unresolved placeholders are stripped from the output, never leaked to a
// recipient.
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateFormat is how anchor-relative dates appear in rendered mail.
const DateFormat = "Monday, 2 January 2006"

var datePlaceholder = regexp.MustCompile(`\{\{event_date([+-]\d+)?\}\}`)

// Render substitutes placeholders in tmpl. {{event_date}} and
// {{event_date±N}} are computed against anchorDate before formatting;
// every other {{field}} is looked up in data. Placeholders with no value
// are removed.
func Render(tmpl string, data map[string]interface{}, anchorDate time.Time) string {
	result := expandDates(tmpl, anchorDate)

	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", stringify(v))
	}

	return stripUnresolved(result)
}

func expandDates(tmpl string, anchor time.Time) string {
	if anchor.IsZero() {
		return tmpl
	}
	return datePlaceholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		offset := 0
		if sub := datePlaceholder.FindStringSubmatch(match); sub[1] != "" {
			offset, _ = strconv.Atoi(sub[1])
		}
		return anchor.AddDate(0, 0, offset).Format(DateFormat)
	})
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case time.Time:
		return val.Format(DateFormat)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// stripUnresolved deletes any remaining {{...}} token.
func stripUnresolved(s string) string {
	for {
		start := strings.Index(s, "{{")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "}}")
		if end == -1 {
			return s
		}
		s = s[:start] + s[start+end+2:]
	}
}
