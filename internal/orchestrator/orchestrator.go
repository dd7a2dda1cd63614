package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/delivery"
	"github.com/kazz187/deadlinebot/internal/tasksource"
	"github.com/kazz187/deadlinebot/pkg/cerr"
	"github.com/kazz187/deadlinebot/pkg/clog"
)

// maxParallelDeliveries bounds the recipient fan-out so a large org does not
// hammer the connector with hundreds of concurrent requests.
const maxParallelDeliveries = 8

// Report summarizes one notification run.
type Report struct {
	RunID          string            `json:"run_id"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
	Origin         tasksource.Origin `json:"origin"`
	DegradedReason string            `json:"degraded_reason,omitempty"`
	Recipients     int               `json:"recipients"`
	Tasks          int               `json:"tasks"`
	Sent           int               `json:"sent"`
	Skipped        int               `json:"skipped"`
	Failed         int               `json:"failed"`
	Results        []delivery.Result `json:"results"`
}

// Orchestrator drives a notification run end to end: fetch due tasks, build
// one card per recipient and hand each card to the dispatcher. Runs are
// serialized; a trigger while a run is active is rejected rather than queued
// so the same deadline never produces two cards.
type Orchestrator struct {
	source        tasksource.Source
	builder       *card.Builder
	dispatcher    *delivery.Dispatcher
	lookaheadDays int
	now           func() time.Time

	runMu sync.Mutex

	mu         sync.RWMutex
	lastSent   map[string]bool
	lastReport *Report
}

func New(source tasksource.Source, builder *card.Builder, dispatcher *delivery.Dispatcher, lookaheadDays int) *Orchestrator {
	return &Orchestrator{
		source:        source,
		builder:       builder,
		dispatcher:    dispatcher,
		lookaheadDays: lookaheadDays,
		now:           time.Now,
		lastSent:      make(map[string]bool),
	}
}

// Run executes one notification run and returns its report. Only one run may
// be active at a time; a concurrent call fails with AlreadyExists.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if !o.runMu.TryLock() {
		return nil, cerr.NewError(cerr.AlreadyExists, "notification run already in progress", nil)
	}
	defer o.runMu.Unlock()

	runID := ulid.Make().String()
	ctx = clog.ContextWithSlog(ctx)
	clog.AddAttribute(ctx, "run_id", runID)

	report := &Report{
		RunID:     runID,
		StartedAt: o.now(),
	}

	result, err := o.source.FetchDueTasks(ctx, o.lookaheadDays)
	if err != nil {
		return nil, err
	}
	report.Origin = result.Origin
	report.DegradedReason = result.Reason
	report.Recipients = len(result.Groups)
	report.Tasks = result.Groups.TotalTasks()

	slog.InfoContext(ctx, "notification run started",
		"origin", result.Origin,
		"recipients", report.Recipients,
		"tasks", report.Tasks)

	emails := result.Groups.Emails()
	results := make([]delivery.Result, len(emails))

	p := pool.New().WithMaxGoroutines(maxParallelDeliveries)
	for i, email := range emails {
		p.Go(func() {
			tasks := result.Groups[email]
			payload, err := o.builder.Build(email, tasks)
			if err != nil {
				results[i] = delivery.Result{Email: email, Status: delivery.StatusFailed, Error: err.Error()}
				return
			}
			results[i] = o.dispatcher.Deliver(ctx, email, payload)
		})
	}
	p.Wait()

	for _, res := range results {
		report.Results = append(report.Results, res)
		switch res.Status {
		case delivery.StatusSent:
			report.Sent++
		case delivery.StatusSkippedNoReference:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	report.FinishedAt = o.now()

	o.recordRun(result, report)

	slog.InfoContext(ctx, "notification run finished",
		"sent", report.Sent,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

// recordRun snapshots the completion state each task was sent with. The
// response handler diffs inbound submissions against this snapshot.
func (o *Orchestrator) recordRun(result *tasksource.Result, report *Report) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.lastSent = make(map[string]bool, result.Groups.TotalTasks())
	for _, tasks := range result.Groups {
		for _, t := range tasks {
			o.lastSent[t.ID] = t.Completed
		}
	}
	o.lastReport = report
}

// LastSentCompleted reports the completion state a task had on the last sent
// card. Tasks never sent default to incomplete.
func (o *Orchestrator) LastSentCompleted(taskID string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastSent[taskID]
}

// LastReport returns the most recent run report, or nil before the first run.
func (o *Orchestrator) LastReport() *Report {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastReport
}
