package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/config"
	"github.com/kazz187/deadlinebot/internal/convref"
	"github.com/kazz187/deadlinebot/internal/convref/repositoryimpl"
	"github.com/kazz187/deadlinebot/internal/delivery"
	"github.com/kazz187/deadlinebot/internal/task"
	"github.com/kazz187/deadlinebot/internal/tasksource"
	"github.com/kazz187/deadlinebot/pkg/cerr"
	"github.com/kazz187/deadlinebot/pkg/storage"
)

type fixedSource struct {
	result  *tasksource.Result
	err     error
	fetched int
}

func (s *fixedSource) FetchDueTasks(context.Context, int) (*tasksource.Result, error) {
	s.fetched++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *fixedSource) UpdateTask(context.Context, string, bool, string, time.Time) error {
	return nil
}

type countingTransport struct {
	mu      sync.Mutex
	sent    map[string]int
	gate    chan struct{}
	entered sync.Once
	started chan struct{}
}

func (c *countingTransport) Name() string { return "counting" }

func (c *countingTransport) SendCard(_ context.Context, ref *convref.ConversationReference, _ card.Payload) error {
	if c.started != nil {
		c.entered.Do(func() { close(c.started) })
	}
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent == nil {
		c.sent = make(map[string]int)
	}
	c.sent[ref.Email]++
	return nil
}

func liveResult() *tasksource.Result {
	return &tasksource.Result{
		Origin: tasksource.OriginLive,
		Groups: task.RecipientGroups{
			"alex@example.com": {
				{ID: "t1", Title: "Prepare report", Type: task.TypeAgreement, Completed: false},
				{ID: "t2", Title: "Review budget", Type: task.TypeDecision, Completed: true},
			},
			"zoe@example.com": {
				{ID: "t3", Title: "Fix rollout issue", Type: task.TypeIssue, Completed: false},
			},
		},
	}
}

func newTestOrchestrator(t *testing.T, source tasksource.Source, transport delivery.Transport, knownEmails ...string) *Orchestrator {
	t.Helper()
	templates, err := card.NewTemplates(&config.CardEnv{TemplateDir: "../../resources/cards"})
	require.NoError(t, err)

	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	refs := repositoryimpl.NewYAMLRepository(s)
	for _, email := range knownEmails {
		require.NoError(t, refs.Upsert(context.Background(), &convref.ConversationReference{
			Email:          email,
			UserID:         "29:" + email,
			ConversationID: "a:" + email,
		}))
	}

	return New(source, card.NewBuilder(templates), delivery.NewDispatcher(refs, transport, nil), 2)
}

func TestRunDeliversOneCardPerRecipient(t *testing.T) {
	transport := &countingTransport{}
	o := newTestOrchestrator(t, &fixedSource{result: liveResult()}, transport,
		"alex@example.com", "zoe@example.com")

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, tasksource.OriginLive, report.Origin)
	assert.Equal(t, 2, report.Recipients)
	assert.Equal(t, 3, report.Tasks)
	assert.Equal(t, 2, report.Sent)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)
	assert.Equal(t, map[string]int{"alex@example.com": 1, "zoe@example.com": 1}, transport.sent)
}

func TestRunSkipsRecipientsWithoutReference(t *testing.T) {
	transport := &countingTransport{}
	o := newTestOrchestrator(t, &fixedSource{result: liveResult()}, transport, "alex@example.com")

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, transport.sent["zoe@example.com"])
}

func TestRunRecordsSnapshotForResponseDiffing(t *testing.T) {
	o := newTestOrchestrator(t, &fixedSource{result: liveResult()}, &countingTransport{},
		"alex@example.com", "zoe@example.com")

	assert.False(t, o.LastSentCompleted("t2"), "before any run every task reads incomplete")

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, o.LastSentCompleted("t1"))
	assert.True(t, o.LastSentCompleted("t2"))
	assert.False(t, o.LastSentCompleted("never-sent"))
}

func TestRunCompletesOnSampleFallback(t *testing.T) {
	live := &fixedSource{err: errors.New("source down")}
	source := tasksource.NewFallback(live, tasksource.NewSampleProvider())
	transport := &countingTransport{}
	o := newTestOrchestrator(t, source, transport)

	report, err := o.Run(context.Background())
	require.NoError(t, err, "a dead source must not fail the run")

	assert.Equal(t, tasksource.OriginSample, report.Origin)
	assert.NotEmpty(t, report.DegradedReason)
	assert.Positive(t, report.Tasks)
}

func TestRunRejectsConcurrentTrigger(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	transport := &countingTransport{gate: gate, started: started}
	o := newTestOrchestrator(t, &fixedSource{result: liveResult()}, transport,
		"alex@example.com", "zoe@example.com")

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background())
		done <- err
	}()

	// Wait until the first run is blocked inside delivery, then trigger again.
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first run never reached delivery")
	}
	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))

	close(gate)
	require.NoError(t, <-done)

	assert.Equal(t, 1, transport.sent["alex@example.com"], "no duplicate cards after rejected trigger")
}

func TestRunSourceErrorWithoutFallback(t *testing.T) {
	o := newTestOrchestrator(t, &fixedSource{err: errors.New("source down")}, &countingTransport{})

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, o.LastReport())
}

func TestLastReport(t *testing.T) {
	o := newTestOrchestrator(t, &fixedSource{result: liveResult()}, &countingTransport{},
		"alex@example.com", "zoe@example.com")

	require.Nil(t, o.LastReport())
	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report, o.LastReport())
}
