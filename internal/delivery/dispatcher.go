package delivery

import (
	"context"
	"log/slog"

	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/convref"
	"github.com/kazz187/deadlinebot/pkg/cerr"
	"github.com/kazz187/deadlinebot/pkg/clog"
)

// Dispatcher resolves a recipient's conversation reference and tries the
// primary transport, then the fallback exactly once. A recipient without a
// stored reference is skipped, never failed: the bot cannot address a user
// who has not messaged it yet.
type Dispatcher struct {
	refs     convref.Repository
	primary  Transport
	fallback Transport
}

func NewDispatcher(refs convref.Repository, primary, fallback Transport) *Dispatcher {
	return &Dispatcher{refs: refs, primary: primary, fallback: fallback}
}

func (d *Dispatcher) Deliver(ctx context.Context, email string, payload card.Payload) Result {
	ctx = clog.ContextWithSlog(ctx)
	clog.AddAttribute(ctx, "recipient", email)

	ref, err := d.refs.Get(ctx, email)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			slog.InfoContext(ctx, "no conversation reference, skipping recipient")
			return Result{Email: email, Status: StatusSkippedNoReference}
		}
		return Result{Email: email, Status: StatusFailed, Error: err.Error()}
	}

	if err := d.primary.SendCard(ctx, ref, payload); err == nil {
		return Result{Email: email, Status: StatusSent, Transport: d.primary.Name()}
	} else {
		slog.WarnContext(ctx, "primary delivery failed, trying fallback",
			"transport", d.primary.Name(), "error", err)
	}

	if d.fallback == nil {
		return Result{Email: email, Status: StatusFailed, Transport: d.primary.Name(),
			Error: "primary delivery failed and no fallback transport is configured"}
	}
	if err := d.fallback.SendCard(ctx, ref, payload); err != nil {
		slog.ErrorContext(ctx, "fallback delivery failed",
			"transport", d.fallback.Name(), "error", err)
		return Result{Email: email, Status: StatusFailed, Transport: d.fallback.Name(), Error: err.Error()}
	}
	return Result{Email: email, Status: StatusSent, Transport: d.fallback.Name()}
}
