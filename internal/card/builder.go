package card

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kazz187/deadlinebot/internal/task"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

const (
	upcomingDeadlineTemplate = "upcoming_deadline"

	// SubmitAction identifies a deadline-card submission in the inbound
	// activity payload.
	SubmitAction = "update_deadline_tasks"

	taskRowsContainerID = "taskRows"
)

// ToggleID returns the Input.Toggle id binding a checkbox to a task, and
// TaskIDFromToggle recovers the task id from a submitted key. The task id is
// embedded directly in the input id, so the response handler never needs a
// parallel index.
func ToggleID(taskID string) string {
	return "task_" + taskID + "_completed"
}

func TaskIDFromToggle(key string) (string, bool) {
	if len(key) <= len("task_")+len("_completed") {
		return "", false
	}
	if key[:len("task_")] != "task_" || key[len(key)-len("_completed"):] != "_completed" {
		return "", false
	}
	return key[len("task_") : len(key)-len("_completed")], true
}

func iconForType(typ task.Type) string {
	switch typ {
	case task.TypeAgreement:
		return "CheckmarkStarburst"
	case task.TypeDecision:
		return "Diamond"
	case task.TypeIssue:
		return "Info"
	default:
		return "CheckmarkStarburst"
	}
}

// Builder renders recipient task lists into Adaptive Card payloads using the
// loaded templates.
type Builder struct {
	templates *Templates
	now       func() time.Time
}

func NewBuilder(templates *Templates) *Builder {
	return &Builder{templates: templates, now: time.Now}
}

// Build produces the deadline card for one recipient. The body repeats one
// row block per task in input order; each row embeds the task id in its
// toggle input. Rendering never branches on field presence — the mapper
// already guaranteed placeholders — only on task type (badge icon).
func (b *Builder) Build(recipientEmail string, tasks []task.NormalizedTask) (Payload, error) {
	tmpl, err := b.templates.Get(upcomingDeadlineTemplate)
	if err != nil {
		return nil, err
	}

	populatePlaceholders(tmpl, map[string]string{
		"recipient": recipientEmail,
		"taskCount": strconv.Itoa(len(tasks)),
		"date":      b.now().Format("02.01.2006"),
	})

	container, err := findContainer(tmpl, taskRowsContainerID)
	if err != nil {
		return nil, err
	}
	rows, _ := container["items"].([]any)
	for _, t := range tasks {
		rows = append(rows, taskRow(t), taskDetails(t))
	}
	container["items"] = rows
	return tmpl, nil
}

// findContainer locates the element with the given id in the card body.
func findContainer(tmpl Payload, id string) (map[string]any, error) {
	body, ok := tmpl["body"].([]any)
	if !ok {
		return nil, cerr.NewError(cerr.Internal, "card template has no body", nil)
	}
	for _, el := range body {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if m["id"] == id {
			return m, nil
		}
	}
	return nil, cerr.NewError(cerr.Internal, fmt.Sprintf("card template has no %q container", id), nil)
}

func taskRow(t task.NormalizedTask) map[string]any {
	return map[string]any{
		"type":      "Container",
		"separator": true,
		"spacing":   "Small",
		"selectAction": map[string]any{
			"type":           "Action.ToggleVisibility",
			"targetElements": []any{"details_" + t.ID},
		},
		"items": []any{
			map[string]any{
				"type": "ColumnSet",
				"columns": []any{
					map[string]any{
						"type":  "Column",
						"width": 3,
						"items": []any{
							map[string]any{
								"type":     "TextBlock",
								"text":     t.Title,
								"maxLines": 1,
								"size":     "Small",
							},
						},
						"verticalContentAlignment": "Center",
					},
					map[string]any{
						"type":  "Column",
						"width": 2,
						"items": []any{
							map[string]any{
								"type": "ColumnSet",
								"columns": []any{
									map[string]any{
										"type":  "Column",
										"width": "auto",
										"items": []any{
											map[string]any{
												"type": "Icon",
												"name": iconForType(t.Type),
												"size": "xxSmall",
											},
										},
									},
									map[string]any{
										"type":  "Column",
										"width": "stretch",
										"items": []any{
											map[string]any{
												"type": "TextBlock",
												"text": string(t.Type),
												"wrap": true,
												"size": "Small",
											},
										},
									},
								},
							},
						},
						"verticalContentAlignment": "Center",
					},
					map[string]any{
						"type":  "Column",
						"width": 2,
						"items": []any{
							map[string]any{
								"type": "ColumnSet",
								"columns": []any{
									map[string]any{
										"type":  "Column",
										"width": "stretch",
										"items": []any{
											map[string]any{
												"type": "TextBlock",
												"text": t.DueDateShort,
												"size": "Small",
											},
										},
									},
									map[string]any{
										"type":  "Column",
										"width": "auto",
										"items": []any{
											map[string]any{
												"type":  "Input.Toggle",
												"id":    ToggleID(t.ID),
												"value": strconv.FormatBool(t.Completed),
												"title": "",
											},
										},
									},
								},
							},
						},
						"verticalContentAlignment": "Center",
					},
				},
			},
		},
	}
}

func taskDetails(t task.NormalizedTask) map[string]any {
	return map[string]any{
		"type":      "Container",
		"id":        "details_" + t.ID,
		"isVisible": false,
		"spacing":   "Small",
		"items": []any{
			map[string]any{
				"type": "FactSet",
				"facts": []any{
					map[string]any{"title": "Meeting", "value": t.MeetingOrigin},
					map[string]any{"title": "Meeting date", "value": t.MeetingDate},
					map[string]any{"title": "Agenda item", "value": t.AgendaItem},
					map[string]any{"title": "Relation", "value": t.Relation},
				},
			},
		},
	}
}
