package bot

// Activity is the subset of a Bot Framework activity the endpoint needs:
// enough addressing to capture a conversation reference plus the submitted
// card values.
type Activity struct {
	Type         string         `json:"type"`
	ID           string         `json:"id"`
	ServiceURL   string         `json:"serviceUrl"`
	ChannelID    string         `json:"channelId"`
	From         Account        `json:"from"`
	Recipient    Account        `json:"recipient"`
	Conversation Conversation   `json:"conversation"`
	Value        map[string]any `json:"value,omitempty"`
}

type Account struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	AADObjectID string `json:"aadObjectId,omitempty"`
}

type Conversation struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId,omitempty"`
}
