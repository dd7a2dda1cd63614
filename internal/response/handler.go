package response

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/delivery"
	"github.com/kazz187/deadlinebot/internal/tasksource"
)

// TaskState exposes the completion state each task had when its card was
// last sent. The handler diffs submissions against this baseline so that
// only real changes turn into source updates.
type TaskState interface {
	LastSentCompleted(taskID string) bool
}

// Submission is a parsed deadline-card submit: the acting user plus the raw
// input values from the card.
type Submission struct {
	ActorEmail string
	ActorName  string
	Values     map[string]any
}

// Counts summarizes one handled submission.
type Counts struct {
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

type Handler struct {
	source     tasksource.Source
	states     TaskState
	builder    *card.Builder
	dispatcher *delivery.Dispatcher
	now        func() time.Time
}

func NewHandler(source tasksource.Source, states TaskState, builder *card.Builder, dispatcher *delivery.Dispatcher) *Handler {
	return &Handler{
		source:     source,
		states:     states,
		builder:    builder,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Handle diffs the submitted checkbox states against the last sent card,
// pushes one source update per changed task and sends a confirmation card
// back to the actor. A failed update never aborts the rest: each task is
// updated independently and failures are reported on the confirmation.
func (h *Handler) Handle(ctx context.Context, sub Submission) (Counts, error) {
	changes := parseToggles(sub.Values)

	var counts Counts
	var updated, failed []card.UpdateOutcome
	for _, c := range changes {
		if c.completed == h.states.LastSentCompleted(c.taskID) {
			counts.Unchanged++
			continue
		}
		if err := h.source.UpdateTask(ctx, c.taskID, c.completed, sub.ActorEmail, h.now()); err != nil {
			slog.WarnContext(ctx, "task update failed",
				"task_id", c.taskID, "completed", c.completed, "error", err)
			counts.Failed++
			failed = append(failed, card.UpdateOutcome{TaskID: c.taskID, Completed: c.completed, Err: err.Error()})
			continue
		}
		counts.Updated++
		updated = append(updated, card.UpdateOutcome{TaskID: c.taskID, Completed: c.completed})
	}

	confirmation := h.builder.BuildConfirmation(updated, failed, counts.Unchanged)
	if res := h.dispatcher.Deliver(ctx, sub.ActorEmail, confirmation); res.Status != delivery.StatusSent {
		slog.WarnContext(ctx, "failed to deliver confirmation card",
			"recipient", sub.ActorEmail, "status", res.Status, "error", res.Error)
	}

	slog.InfoContext(ctx, "handled card submission",
		"actor", sub.ActorEmail,
		"updated", counts.Updated,
		"unchanged", counts.Unchanged,
		"failed", counts.Failed)
	return counts, nil
}

type toggleChange struct {
	taskID    string
	completed bool
}

// parseToggles extracts the per-task checkbox states from the submitted
// values in deterministic order. Non-toggle keys (like the action marker)
// are ignored; toggle values arrive as the strings "true" and "false".
func parseToggles(values map[string]any) []toggleChange {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var changes []toggleChange
	for _, k := range keys {
		taskID, ok := card.TaskIDFromToggle(k)
		if !ok {
			continue
		}
		changes = append(changes, toggleChange{taskID: taskID, completed: toBool(values[k])})
	}
	return changes
}

func toBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true"
	default:
		return false
	}
}
