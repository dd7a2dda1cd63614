package tasksource

import (
	"context"
	"log/slog"
	"time"
)

// Fallback wraps a live source and degrades to the sample provider when any
// step of the live fetch fails: auth, network, non-2xx, or a malformed
// response. Callers always get a usable result; the origin tag records
// which path produced it. Updates are never degraded — an update failure is
// surfaced so the user is not told a lie.
type Fallback struct {
	live   Source
	sample *SampleProvider
}

func NewFallback(live Source, sample *SampleProvider) *Fallback {
	return &Fallback{live: live, sample: sample}
}

func (f *Fallback) FetchDueTasks(ctx context.Context, lookaheadDays int) (*Result, error) {
	res, err := f.live.FetchDueTasks(ctx, lookaheadDays)
	if err == nil {
		return res, nil
	}

	slog.WarnContext(ctx, "live task source failed, degrading to sample data", "error", err)
	degraded, sampleErr := f.sample.FetchDueTasks(ctx, lookaheadDays)
	if sampleErr != nil {
		// The sample provider cannot fail today; keep the guard anyway.
		return nil, sampleErr
	}
	degraded.Reason = err.Error()
	return degraded, nil
}

func (f *Fallback) UpdateTask(ctx context.Context, taskID string, completed bool, actor string, at time.Time) error {
	return f.live.UpdateTask(ctx, taskID, completed, actor, at)
}
