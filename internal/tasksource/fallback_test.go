package tasksource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/deadlinebot/internal/task"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

type stubSource struct {
	result    *Result
	fetchErr  error
	updateErr error
	updates   []string
}

func (s *stubSource) FetchDueTasks(context.Context, int) (*Result, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.result, nil
}

func (s *stubSource) UpdateTask(_ context.Context, taskID string, _ bool, _ string, _ time.Time) error {
	s.updates = append(s.updates, taskID)
	return s.updateErr
}

func TestFallbackPassesThroughLiveResult(t *testing.T) {
	live := &stubSource{result: &Result{
		Groups: task.RecipientGroups{"a@example.com": {{ID: "t1"}}},
		Origin: OriginLive,
	}}
	f := NewFallback(live, NewSampleProvider())

	res, err := f.FetchDueTasks(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, OriginLive, res.Origin)
	assert.Empty(t, res.Reason)
}

func TestFallbackDegradesToSampleOnFailure(t *testing.T) {
	live := &stubSource{fetchErr: cerr.NewError(cerr.SourceUnavailable, "boom", nil)}
	f := NewFallback(live, NewSampleProvider())

	res, err := f.FetchDueTasks(context.Background(), 2)
	require.NoError(t, err, "a live failure must not raise to the caller")
	assert.Equal(t, OriginSample, res.Origin)
	assert.Contains(t, res.Reason, "boom")
	assert.NotEmpty(t, res.Groups, "sample data should yield recipients")
}

func TestFallbackNeverDegradesUpdates(t *testing.T) {
	live := &stubSource{updateErr: cerr.NewError(cerr.UpdateFailed, "rejected", nil)}
	f := NewFallback(live, NewSampleProvider())

	err := f.UpdateTask(context.Background(), "t1", true, "a@example.com", time.Now())
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.UpdateFailed))
	assert.Equal(t, []string{"t1"}, live.updates)
}

func TestSampleProviderShape(t *testing.T) {
	p := NewSampleProvider()
	p.now = func() time.Time { return testNow }

	res, err := p.FetchDueTasks(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, OriginSample, res.Origin)

	// Sample items always land inside the lookahead window.
	require.NotZero(t, res.Groups.TotalTasks())
	for _, email := range res.Groups.Emails() {
		for _, tk := range res.Groups[email] {
			assert.NotEmpty(t, tk.ID)
			assert.NotEmpty(t, tk.Title)
			assert.False(t, task.IsPlaceholder(tk.AssigneeEmail))
		}
	}
}
