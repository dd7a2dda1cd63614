package tasksource

import (
	"context"
	"time"

	"github.com/kazz187/deadlinebot/internal/task"
)

// Origin tags where a fetch result came from, so callers and tests can tell
// a live result from a degraded one without inspecting errors.
type Origin string

const (
	OriginLive   Origin = "live"
	OriginSample Origin = "sample"
)

// Result is the outcome of one fetch: tasks grouped by recipient plus the
// origin tag. Reason is non-empty only for degraded results.
type Result struct {
	Groups task.RecipientGroups
	Origin Origin
	Reason string
}

// Source is the task-source capability. The three-step progress API and the
// flat list API are two implementations selected by configuration.
type Source interface {
	// FetchDueTasks returns incomplete tasks due within the lookahead
	// window, grouped by recipient email.
	FetchDueTasks(ctx context.Context, lookaheadDays int) (*Result, error)

	// UpdateTask PUTs a completion change back to the source. A returned
	// error must be surfaced to the user, never swallowed.
	UpdateTask(ctx context.Context, taskID string, completed bool, actor string, at time.Time) error
}
