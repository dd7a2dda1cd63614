package card

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/deadlinebot/internal/config"
	"github.com/kazz187/deadlinebot/internal/task"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	templates, err := NewTemplates(&config.CardEnv{TemplateDir: "../../resources/cards"})
	require.NoError(t, err)
	b := NewBuilder(templates)
	b.now = func() time.Time { return time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC) }
	return b
}

func testTasks(n int) []task.NormalizedTask {
	tasks := make([]task.NormalizedTask, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, task.NormalizedTask{
			ID:            fmt.Sprintf("task-%d", i),
			Title:         fmt.Sprintf("Task number %d", i),
			Type:          task.TypeAgreement,
			DueDateShort:  "02.09.",
			DueDateFull:   "2025-09-02",
			AssigneeEmail: "alex@example.com",
			MeetingOrigin: "Weekly Review",
			MeetingDate:   "25.08.2025",
			AgendaItem:    "Introduction",
			Relation:      "Q4 Strategy",
		})
	}
	return tasks
}

func TestBuildOneRowPerTaskInOrder(t *testing.T) {
	b := newTestBuilder(t)
	payload, err := b.Build("alex@example.com", testTasks(3))
	require.NoError(t, err)

	container, err := findContainer(payload, taskRowsContainerID)
	require.NoError(t, err)
	items := container["items"].([]any)
	// One row plus one hidden details container per task.
	require.Len(t, items, 6)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		row := items[i*2].(map[string]any)
		id := findToggleID(t, row)
		wantID := ToggleID(fmt.Sprintf("task-%d", i))
		assert.Equal(t, wantID, id, "rows must follow input order")
		assert.False(t, seen[id], "embedded id %s duplicated", id)
		seen[id] = true
	}
}

func findToggleID(t *testing.T, node any) string {
	t.Helper()
	var id string
	var walk func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if val["type"] == "Input.Toggle" {
				id = val["id"].(string)
				return
			}
			for _, item := range val {
				walk(item)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(node)
	require.NotEmpty(t, id, "row has no Input.Toggle")
	return id
}

func TestBuildPopulatesHeaderBindings(t *testing.T) {
	b := newTestBuilder(t)
	payload, err := b.Build("alex@example.com", testTasks(2))
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "alex@example.com")
	assert.Contains(t, string(raw), "2 task(s)")
	assert.NotContains(t, string(raw), "{{recipient}}")
	assert.NotContains(t, string(raw), "{{taskCount}}")
}

func TestBuildIsPureAndDoesNotMutateTemplate(t *testing.T) {
	b := newTestBuilder(t)

	first, err := b.Build("alex@example.com", testTasks(2))
	require.NoError(t, err)
	second, err := b.Build("alex@example.com", testTasks(2))
	require.NoError(t, err)

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))

	// A fresh template copy must still have an empty rows container.
	tmpl, err := b.templates.Get(upcomingDeadlineTemplate)
	require.NoError(t, err)
	container, err := findContainer(tmpl, taskRowsContainerID)
	require.NoError(t, err)
	assert.Empty(t, container["items"])
}

func TestBuildRendersPlaceholderFieldsVerbatim(t *testing.T) {
	b := newTestBuilder(t)
	sparse := task.NormalizedTask{
		ID:            "t1",
		Title:         task.Placeholder("description"),
		Type:          task.TypeUnknown,
		DueDateShort:  task.Placeholder("dueDate"),
		AssigneeEmail: "alex@example.com",
		MeetingOrigin: task.Placeholder("meetingOrigin"),
		MeetingDate:   task.Placeholder("meetingDate"),
		AgendaItem:    task.Placeholder("agendaItem"),
		Relation:      task.Placeholder("relation"),
	}
	payload, err := b.Build("alex@example.com", []task.NormalizedTask{sparse})
	require.NoError(t, err)

	raw, _ := json.Marshal(payload)
	assert.Contains(t, string(raw), "[PLACEHOLDER: Missing description]")
	assert.Contains(t, string(raw), "[PLACEHOLDER: Missing dueDate]")
}

func TestToggleIDRoundTrip(t *testing.T) {
	tests := []struct {
		key    string
		wantID string
		wantOK bool
	}{
		{ToggleID("abc-123"), "abc-123", true},
		{"task_x_completed", "x", true},
		{"action", "", false},
		{"task__completed", "", false},
		{"task_abc", "", false},
		{"abc_completed", "", false},
	}
	for _, tt := range tests {
		got, ok := TaskIDFromToggle(tt.key)
		if ok != tt.wantOK || got != tt.wantID {
			t.Errorf("TaskIDFromToggle(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestBuildConfirmation(t *testing.T) {
	b := newTestBuilder(t)
	payload := b.BuildConfirmation(
		[]UpdateOutcome{{TaskID: "t1", Completed: true}},
		[]UpdateOutcome{{TaskID: "t2", Err: "update rejected"}},
		1,
	)

	raw, _ := json.Marshal(payload)
	assert.Contains(t, string(raw), "Successfully updated 1 task(s)")
	assert.Contains(t, string(raw), "Failed to update 1 task(s)")
	assert.Contains(t, string(raw), "Task t2: update rejected", "failed updates must be named")
	assert.Contains(t, string(raw), "1 task(s) unchanged")
}

func TestTemplatesGetUnknown(t *testing.T) {
	templates, err := NewTemplates(&config.CardEnv{TemplateDir: "../../resources/cards"})
	require.NoError(t, err)
	_, err = templates.Get("no_such_template")
	require.Error(t, err)
}
