package noteservice

import (
	"strings"
	"time"
)

// expandTemplateVars substitutes date placeholders in a daily-note template.
// Supported: {{date}}, {{date_long}}, {{time}}, {{datetime}}, {{year}},
// {{month}}, {{day}}, {{weekday}}.
func expandTemplateVars(template string, now time.Time) string {
	if template == "" {
		return "# " + now.Format("2006-01-02") + "\n"
	}
	r := strings.NewReplacer(
		"{{date}}", now.Format("2006-01-02"),
		"{{date_long}}", now.Format("Monday, January 2, 2006"),
		"{{time}}", now.Format("15:04"),
		"{{datetime}}", now.Format("2006-01-02 15:04"),
		"{{year}}", now.Format("2006"),
		"{{month}}", now.Format("01"),
		"{{day}}", now.Format("02"),
		"{{weekday}}", now.Format("Monday"),
	)
	return r.Replace(template)
}
