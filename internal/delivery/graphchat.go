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

// GraphChatTransport is the fallback channel: it opens (or reuses) a one on
// one chat with the user through the Graph API and posts the card there. It
// needs only the user's AAD id, not a captured bot conversation.
type GraphChatTransport struct {
	baseURL string
	appID   string
	http    *http.Client
	tokens  auth.TokenProvider
}

func NewGraphChatTransport(env *config.DeliveryEnv, tokens auth.TokenProvider) *GraphChatTransport {
	return &GraphChatTransport{
		baseURL: env.GraphBaseURL,
		appID:   env.BotAppID,
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
	}
}

func (t *GraphChatTransport) Name() string {
	return "graphchat"
}

func (t *GraphChatTransport) SendCard(ctx context.Context, ref *convref.ConversationReference, payload card.Payload) error {
	userID := ref.AADObjectID
	if userID == "" {
		userID = ref.UserID
	}
	if userID == "" {
		return cerr.NewError(cerr.DeliveryFailed, "conversation reference has no user id", nil)
	}

	token, err := t.tokens.BearerToken(ctx)
	if err != nil {
		return err
	}

	chatID, err := t.createChat(ctx, token, userID)
	if err != nil {
		return err
	}
	return t.sendMessage(ctx, token, chatID, payload)
}

func (t *GraphChatTransport) createChat(ctx context.Context, token, userID string) (string, error) {
	req := map[string]any{
		"chatType": "oneOnOne",
		"members": []any{
			map[string]any{
				"@odata.type":     "#microsoft.graph.aadUserConversationMember",
				"roles":           []string{"owner"},
				"user@odata.bind": fmt.Sprintf("https://graph.microsoft.com/v1.0/users('%s')", userID),
			},
		},
	}
	var res struct {
		ID string `json:"id"`
	}
	if err := t.postJSON(ctx, token, t.baseURL+"/chats", req, &res); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", cerr.NewError(cerr.DeliveryFailed, "graph returned chat without id", nil)
	}
	return res.ID, nil
}

func (t *GraphChatTransport) sendMessage(ctx context.Context, token, chatID string, payload card.Payload) error {
	content, err := json.Marshal(payload)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal card: %w", err))
	}
	attachmentID := "deadline-card"
	req := map[string]any{
		"body": map[string]any{
			"contentType": "html",
			"content":     fmt.Sprintf(`<attachment id="%s"></attachment>`, attachmentID),
		},
		"attachments": []any{
			map[string]any{
				"id":          attachmentID,
				"contentType": adaptiveCardContentType,
				"content":     string(content),
			},
		},
	}
	endpoint := fmt.Sprintf("%s/chats/%s/messages", t.baseURL, url.PathEscape(chatID))
	return t.postJSON(ctx, token, endpoint, req, nil)
}

// ResolveEmail looks up a user's mail address by AAD object id. The bot
// endpoint uses it to key conversation references, since Teams activities
// carry the object id but not the mail address.
func (t *GraphChatTransport) ResolveEmail(ctx context.Context, aadObjectID string) (string, error) {
	token, err := t.tokens.BearerToken(ctx)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/users/%s?$select=mail,userPrincipalName",
		t.baseURL, url.PathEscape(aadObjectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to build graph request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := t.http.Do(req)
	if err != nil {
		return "", cerr.NewError(cerr.DeliveryFailed, "graph user lookup failed", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", cerr.NewError(cerr.DeliveryFailed,
			fmt.Sprintf("graph returned status %d", res.StatusCode),
			fmt.Errorf("%s: %s", endpoint, string(msg)))
	}

	var user struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil {
		return "", cerr.NewError(cerr.DeliveryFailed, "failed to decode graph user", err)
	}
	if user.Mail != "" {
		return user.Mail, nil
	}
	if user.UserPrincipalName != "" {
		return user.UserPrincipalName, nil
	}
	return "", cerr.NewError(cerr.NotFound, "user has no mail address", nil)
}

func (t *GraphChatTransport) postJSON(ctx context.Context, token, endpoint string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal graph request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to build graph request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := t.http.Do(req)
	if err != nil {
		return cerr.NewError(cerr.DeliveryFailed, "graph request failed", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return cerr.NewError(cerr.DeliveryFailed,
			fmt.Sprintf("graph returned status %d", res.StatusCode),
			fmt.Errorf("%s: %s", endpoint, string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return cerr.NewError(cerr.DeliveryFailed, "failed to decode graph response", err)
	}
	return nil
}
