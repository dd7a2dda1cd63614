package card

import (
	"fmt"
)

// UpdateOutcome reports the result of one task update for the confirmation
// card.
type UpdateOutcome struct {
	TaskID    string
	Completed bool
	Err       string // empty on success
}

// BuildConfirmation renders the post-submission summary card. Unlike the
// deadline card it is built programmatically: the layout is three counter
// lines plus per-task detail, nothing worth templating. Failed updates are
// always named by task id so the user never mistakes a failure for success.
func (b *Builder) BuildConfirmation(updated, failed []UpdateOutcome, unchanged int) Payload {
	body := []any{
		map[string]any{
			"type":   "TextBlock",
			"text":   "Task Update Confirmation",
			"size":   "Large",
			"weight": "Bolder",
		},
	}

	if len(updated) > 0 {
		body = append(body, map[string]any{
			"type":    "TextBlock",
			"text":    fmt.Sprintf("✅ Successfully updated %d task(s)", len(updated)),
			"color":   "Good",
			"weight":  "Bolder",
			"spacing": "Medium",
		})
		for _, u := range updated {
			status := "Not completed"
			if u.Completed {
				status = "Completed"
			}
			body = append(body, map[string]any{
				"type":    "TextBlock",
				"text":    fmt.Sprintf("• Task %s: %s", u.TaskID, status),
				"size":    "Small",
				"spacing": "Small",
			})
		}
	}

	if len(failed) > 0 {
		body = append(body, map[string]any{
			"type":    "TextBlock",
			"text":    fmt.Sprintf("❌ Failed to update %d task(s)", len(failed)),
			"color":   "Attention",
			"weight":  "Bolder",
			"spacing": "Medium",
		})
		for _, f := range failed {
			body = append(body, map[string]any{
				"type":    "TextBlock",
				"text":    fmt.Sprintf("• Task %s: %s", f.TaskID, f.Err),
				"size":    "Small",
				"spacing": "Small",
				"color":   "Attention",
			})
		}
	}

	if unchanged > 0 {
		body = append(body, map[string]any{
			"type":    "TextBlock",
			"text":    fmt.Sprintf("%d task(s) unchanged", unchanged),
			"spacing": "Medium",
			"size":    "Small",
			"isSubtle": true,
		})
	}

	body = append(body, map[string]any{
		"type":     "TextBlock",
		"text":     b.now().Format("02.01.2006 15:04"),
		"size":     "Small",
		"isSubtle": true,
		"spacing":  "Medium",
	})

	return Payload{
		"type":    "AdaptiveCard",
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"version": "1.5",
		"body":    body,
	}
}
