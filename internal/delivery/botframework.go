package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kazz187/deadlinebot/internal/auth"
	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/config"
	"github.com/kazz187/deadlinebot/internal/convref"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

// BotFrameworkTransport delivers cards as proactive messages through the Bot
// Framework connector. It posts an activity into the conversation captured in
// the stored reference, so it only works for users the bot has talked to.
type BotFrameworkTransport struct {
	appID      string
	serviceURL string
	http       *http.Client
	tokens     auth.TokenProvider
}

func NewBotFrameworkTransport(env *config.DeliveryEnv, tokens auth.TokenProvider) *BotFrameworkTransport {
	return &BotFrameworkTransport{
		appID:      env.BotAppID,
		serviceURL: env.BotServiceURL,
		http:       &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
	}
}

func (t *BotFrameworkTransport) Name() string {
	return "botframework"
}

type channelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type conversationAccount struct {
	ID string `json:"id"`
}

type attachment struct {
	ContentType string       `json:"contentType"`
	Content     card.Payload `json:"content"`
}

type activity struct {
	Type         string              `json:"type"`
	From         channelAccount      `json:"from"`
	Recipient    channelAccount      `json:"recipient"`
	Conversation conversationAccount `json:"conversation"`
	Attachments  []attachment        `json:"attachments"`
}

func (t *BotFrameworkTransport) SendCard(ctx context.Context, ref *convref.ConversationReference, payload card.Payload) error {
	if ref.ConversationID == "" {
		return cerr.NewError(cerr.DeliveryFailed, "conversation reference has no conversation id", nil)
	}
	serviceURL := ref.ServiceURL
	if serviceURL == "" {
		serviceURL = t.serviceURL
	}

	token, err := t.tokens.BearerToken(ctx)
	if err != nil {
		return err
	}

	act := activity{
		Type:         "message",
		From:         channelAccount{ID: ref.BotID},
		Recipient:    channelAccount{ID: ref.UserID, Name: ref.UserName},
		Conversation: conversationAccount{ID: ref.ConversationID},
		Attachments: []attachment{
			{ContentType: adaptiveCardContentType, Content: payload},
		},
	}
	if act.From.ID == "" {
		act.From.ID = "28:" + t.appID
	}

	body, err := json.Marshal(act)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal activity: %w", err))
	}

	endpoint := fmt.Sprintf("%s/v3/conversations/%s/activities",
		serviceURL, url.PathEscape(ref.ConversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to build activity request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := t.http.Do(req)
	if err != nil {
		return cerr.NewError(cerr.DeliveryFailed, "failed to send proactive message", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return cerr.NewError(cerr.DeliveryFailed,
			fmt.Sprintf("connector returned status %d", res.StatusCode),
			fmt.Errorf("send activity: %s", string(msg)))
	}
	return nil
}
