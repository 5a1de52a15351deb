package domain

// AgentInfo describes a backend agent as reported by the agents listing.
type AgentInfo struct {
	Description string   `json:"description"`
	ModelType   string   `json:"model_type"`
	ModelName   string   `json:"model_name"`
	Tools       []string `json:"tools,omitempty"`
}

// ConversationSummary is a read-only listing entry for a stored conversation.
type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	Timestamp      string `json:"timestamp"`
	MessageCount   int    `json:"message_count"`
}
