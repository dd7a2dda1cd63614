package convref

import "time"

// ConversationReference holds the addressing details captured from an inbound
// Teams activity. A stored reference is what lets the bot open a proactive
// conversation with that user later without any new inbound message.
type ConversationReference struct {
	Email          string    `yaml:"email"`
	UserID         string    `yaml:"user_id"`
	AADObjectID    string    `yaml:"aad_object_id"`
	UserName       string    `yaml:"user_name"`
	BotID          string    `yaml:"bot_id"`
	ConversationID string    `yaml:"conversation_id"`
	TenantID       string    `yaml:"tenant_id"`
	ServiceURL     string    `yaml:"service_url"`
	UpdatedAt      time.Time `yaml:"updated_at"`
}
