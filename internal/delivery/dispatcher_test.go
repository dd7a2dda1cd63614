package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/convref"
	"github.com/kazz187/deadlinebot/internal/convref/repositoryimpl"
	"github.com/kazz187/deadlinebot/pkg/cerr"
	"github.com/kazz187/deadlinebot/pkg/storage"
)

type stubTransport struct {
	name  string
	err   error
	sent  []card.Payload
	calls int
}

func (s *stubTransport) Name() string { return s.name }

func (s *stubTransport) SendCard(_ context.Context, _ *convref.ConversationReference, payload card.Payload) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, payload)
	return nil
}

func newTestRefs(t *testing.T, emails ...string) convref.Repository {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := repositoryimpl.NewYAMLRepository(s)
	for _, email := range emails {
		require.NoError(t, repo.Upsert(context.Background(), &convref.ConversationReference{
			Email:          email,
			UserID:         "29:user",
			ConversationID: "a:conversation",
			ServiceURL:     "https://smba.trafficmanager.net/teams",
			UpdatedAt:      time.Now(),
		}))
	}
	return repo
}

func TestDeliverPrimarySucceeds(t *testing.T) {
	primary := &stubTransport{name: "primary"}
	fallback := &stubTransport{name: "fallback"}
	d := NewDispatcher(newTestRefs(t, "alex@example.com"), primary, fallback)

	res := d.Deliver(context.Background(), "alex@example.com", card.Payload{"type": "AdaptiveCard"})

	assert.Equal(t, StatusSent, res.Status)
	assert.Equal(t, "primary", res.Transport)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls, "fallback must not run when primary succeeds")
}

func TestDeliverFallsBackOnce(t *testing.T) {
	primary := &stubTransport{name: "primary", err: cerr.NewError(cerr.DeliveryFailed, "connector down", nil)}
	fallback := &stubTransport{name: "fallback"}
	d := NewDispatcher(newTestRefs(t, "alex@example.com"), primary, fallback)

	res := d.Deliver(context.Background(), "alex@example.com", card.Payload{"type": "AdaptiveCard"})

	assert.Equal(t, StatusSent, res.Status)
	assert.Equal(t, "fallback", res.Transport)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestDeliverBothTransportsFail(t *testing.T) {
	primary := &stubTransport{name: "primary", err: cerr.NewError(cerr.DeliveryFailed, "connector down", nil)}
	fallback := &stubTransport{name: "fallback", err: cerr.NewError(cerr.DeliveryFailed, "graph down", nil)}
	d := NewDispatcher(newTestRefs(t, "alex@example.com"), primary, fallback)

	res := d.Deliver(context.Background(), "alex@example.com", card.Payload{"type": "AdaptiveCard"})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "fallback", res.Transport)
	assert.Contains(t, res.Error, "graph down")
	assert.Equal(t, 1, fallback.calls, "fallback is attempted exactly once")
}

func TestDeliverSkipsUnknownRecipient(t *testing.T) {
	primary := &stubTransport{name: "primary"}
	d := NewDispatcher(newTestRefs(t), primary, nil)

	res := d.Deliver(context.Background(), "stranger@example.com", card.Payload{"type": "AdaptiveCard"})

	assert.Equal(t, StatusSkippedNoReference, res.Status)
	assert.Zero(t, primary.calls)
}

func TestDeliverNoFallbackConfigured(t *testing.T) {
	primary := &stubTransport{name: "primary", err: cerr.NewError(cerr.DeliveryFailed, "connector down", nil)}
	d := NewDispatcher(newTestRefs(t, "alex@example.com"), primary, nil)

	res := d.Deliver(context.Background(), "alex@example.com", card.Payload{"type": "AdaptiveCard"})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Error, "no fallback")
}
