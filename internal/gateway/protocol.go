package gateway

import (
	"encoding/json"

	"github.com/agentmux/agentmux/internal/domain"
)

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	AgentName      string `json:"agent_name"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Debug          bool   `json:"debug"`
}

// ChatResult is the backend's answer to a chat exchange. ConversationID is
// authoritative: it may differ from the id the client sent.
type ChatResult struct {
	Response       string          `json:"response"`
	ConversationID string          `json:"conversation_id"`
	ToolCalls      json.RawMessage `json:"tool_calls,omitempty"`
}

// switchModelRequest is the body of POST /api/switch-model.
type switchModelRequest struct {
	AgentName      string `json:"agent_name"`
	ModelType      string `json:"model_type"`
	ModelName      string `json:"model_name"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// SwitchModelResult reports the outcome of a model switch.
type SwitchModelResult struct {
	Message   string `json:"message"`
	Agent     string `json:"agent"`
	ModelType string `json:"model_type"`
	ModelName string `json:"model_name"`
}

// agentsResponse wraps the agents listing.
type agentsResponse struct {
	Agents map[string]domain.AgentInfo `json:"agents"`
}

// conversationsResponse wraps the conversations listing.
type conversationsResponse struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
}

// ReloadResult reports a reload-agents call.
type ReloadResult struct {
	Message string   `json:"message"`
	Agents  []string `json:"agents"`
}

// ProvidersResult lists available model providers and their models.
type ProvidersResult struct {
	Providers       map[string][]string `json:"providers"`
	DefaultProvider string              `json:"default_provider"`
	DefaultModel    string              `json:"default_model"`
}

// toolsResponse wraps the available-tools listing.
type toolsResponse struct {
	Tools []string `json:"tools"`
}

// conversationResponse wraps a single stored conversation.
type conversationResponse struct {
	Conversation json.RawMessage `json:"conversation"`
}
