package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/convref"
	"github.com/kazz187/deadlinebot/internal/response"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

// EmailResolver maps an AAD object id to the user's mail address.
type EmailResolver interface {
	ResolveEmail(ctx context.Context, aadObjectID string) (string, error)
}

// Server is the Bot Framework messaging endpoint. Every inbound activity
// refreshes the sender's conversation reference; card submissions are
// additionally dispatched to the response handler.
type Server struct {
	refs     convref.Repository
	resolver EmailResolver
	handler  *response.Handler
	now      func() time.Time
}

func NewServer(refs convref.Repository, resolver EmailResolver, handler *response.Handler) *Server {
	return &Server{
		refs:     refs,
		resolver: resolver,
		handler:  handler,
		now:      time.Now,
	}
}

type ackResponse struct {
	Status string `json:"status"`
}

func (s *Server) HandleActivity(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var act Activity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid activity payload", err)
		return
	}
	if act.From.ID == "" || act.Conversation.ID == "" {
		// Nothing addressable, nothing to do.
		cerr.SetJSONResponse(ctx, ackResponse{Status: "ignored"})
		return
	}

	email := s.captureReference(ctx, &act)

	if action, ok := act.Value["action"].(string); ok && action == card.SubmitAction {
		if email == "" {
			cerr.SetNewJSONError(ctx, cerr.UpdateFailed, "cannot resolve submitting user", nil)
			return
		}
		counts, err := s.handler.Handle(ctx, response.Submission{
			ActorEmail: email,
			ActorName:  act.From.Name,
			Values:     act.Value,
		})
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		cerr.SetJSONResponse(ctx, counts)
		return
	}

	cerr.SetJSONResponse(ctx, ackResponse{Status: "ok"})
}

// captureReference stores or refreshes the sender's conversation reference
// and returns the resolved mail address, empty when resolution failed.
func (s *Server) captureReference(ctx context.Context, act *Activity) string {
	email := ""
	if act.From.AADObjectID != "" {
		resolved, err := s.resolver.ResolveEmail(ctx, act.From.AADObjectID)
		if err != nil {
			slog.WarnContext(ctx, "failed to resolve user email",
				"aad_object_id", act.From.AADObjectID, "error", err)
		} else {
			email = resolved
		}
	}
	if email == "" {
		return ""
	}

	ref := &convref.ConversationReference{
		Email:          email,
		UserID:         act.From.ID,
		AADObjectID:    act.From.AADObjectID,
		UserName:       act.From.Name,
		BotID:          act.Recipient.ID,
		ConversationID: act.Conversation.ID,
		TenantID:       act.Conversation.TenantID,
		ServiceURL:     act.ServiceURL,
		UpdatedAt:      s.now(),
	}
	if err := s.refs.Upsert(ctx, ref); err != nil {
		slog.WarnContext(ctx, "failed to store conversation reference",
			"email", email, "error", err)
	}
	return email
}
