package delivery

import (
	"context"

	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/convref"
)

// Transport sends one Adaptive Card to one recipient over a concrete channel.
type Transport interface {
	Name() string
	SendCard(ctx context.Context, ref *convref.ConversationReference, payload card.Payload) error
}

type Status string

const (
	StatusSent               Status = "sent"
	StatusSkippedNoReference Status = "skipped_no_reference"
	StatusFailed             Status = "failed"
)

// Result records the outcome of one recipient's delivery attempt.
type Result struct {
	Email     string `json:"email"`
	Status    Status `json:"status"`
	Transport string `json:"transport,omitempty"`
	Error     string `json:"error,omitempty"`
}

const adaptiveCardContentType = "application/vnd.microsoft.card.adaptive"
