package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/deadlinebot/internal/auth"
	"github.com/kazz187/deadlinebot/internal/card"
	"github.com/kazz187/deadlinebot/internal/config"
	"github.com/kazz187/deadlinebot/internal/convref"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

func TestBotFrameworkSendCard(t *testing.T) {
	var got activity
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v3/conversations/a:conversation/activities", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	tr := NewBotFrameworkTransport(&config.DeliveryEnv{BotAppID: "app-1", BotServiceURL: srv.URL},
		auth.StaticTokenProvider("bot-token"))

	ref := &convref.ConversationReference{
		Email:          "alex@example.com",
		UserID:         "29:user",
		UserName:       "Alex Example",
		BotID:          "28:bot",
		ConversationID: "a:conversation",
	}
	err := tr.SendCard(context.Background(), ref, card.Payload{"type": "AdaptiveCard"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer bot-token", gotAuth)
	assert.Equal(t, "message", got.Type)
	assert.Equal(t, "28:bot", got.From.ID)
	assert.Equal(t, "29:user", got.Recipient.ID)
	assert.Equal(t, "a:conversation", got.Conversation.ID)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, adaptiveCardContentType, got.Attachments[0].ContentType)
	assert.Equal(t, "AdaptiveCard", got.Attachments[0].Content["type"])
}

func TestBotFrameworkSendCardUsesReferenceServiceURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewBotFrameworkTransport(&config.DeliveryEnv{BotServiceURL: "https://unused.example.com"},
		auth.StaticTokenProvider("bot-token"))

	ref := &convref.ConversationReference{ConversationID: "a:c", ServiceURL: srv.URL}
	require.NoError(t, tr.SendCard(context.Background(), ref, card.Payload{}))
}

func TestBotFrameworkSendCardConnectorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := NewBotFrameworkTransport(&config.DeliveryEnv{BotServiceURL: srv.URL},
		auth.StaticTokenProvider("bot-token"))

	err := tr.SendCard(context.Background(), &convref.ConversationReference{ConversationID: "a:c"}, card.Payload{})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.DeliveryFailed))
}

func TestBotFrameworkSendCardMissingConversation(t *testing.T) {
	tr := NewBotFrameworkTransport(&config.DeliveryEnv{}, auth.StaticTokenProvider("bot-token"))

	err := tr.SendCard(context.Background(), &convref.ConversationReference{}, card.Payload{})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.DeliveryFailed))
}

func TestGraphChatSendCard(t *testing.T) {
	var chatCreated, messageSent bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chats":
			chatCreated = true
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "oneOnOne", req["chatType"])
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": "19:chat-1"}`))
		case "/chats/19:chat-1/messages":
			messageSent = true
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			attachments := req["attachments"].([]any)
			require.Len(t, attachments, 1)
			att := attachments[0].(map[string]any)
			assert.Equal(t, adaptiveCardContentType, att["contentType"])
			assert.Contains(t, att["content"], "AdaptiveCard")
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tr := NewGraphChatTransport(&config.DeliveryEnv{GraphBaseURL: srv.URL},
		auth.StaticTokenProvider("graph-token"))

	ref := &convref.ConversationReference{Email: "alex@example.com", UserID: "user-aad-id"}
	require.NoError(t, tr.SendCard(context.Background(), ref, card.Payload{"type": "AdaptiveCard"}))
	assert.True(t, chatCreated)
	assert.True(t, messageSent)
}

func TestGraphChatSendCardMissingUserID(t *testing.T) {
	tr := NewGraphChatTransport(&config.DeliveryEnv{}, auth.StaticTokenProvider("graph-token"))

	err := tr.SendCard(context.Background(), &convref.ConversationReference{Email: "alex@example.com"}, card.Payload{})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.DeliveryFailed))
}
