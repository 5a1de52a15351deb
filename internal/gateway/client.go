// Package gateway is the synchronous request/response transport to the agent
// backend. It holds no session state: every call is a plain HTTP exchange and
// failures surface as *RemoteError for the caller to handle. No retries, no
// internal timeouts; cancellation comes from the caller's context.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentmux/agentmux/internal/domain"
	"github.com/agentmux/agentmux/internal/logging"
)

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logging.Logger
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL, token string, log *logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
		log:     log.Sub("gateway"),
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// SendChat sends a user message to an agent and returns the final response.
// conversationID may be empty (new conversation) or a client-generated
// placeholder; the returned ConversationID is authoritative either way.
func (c *Client) SendChat(ctx context.Context, agent, message, conversationID string, debug bool) (*ChatResult, error) {
	req := chatRequest{
		AgentName:      agent,
		Message:        message,
		ConversationID: conversationID,
		Debug:          debug,
	}
	var res ChatResult
	if err := c.post(ctx, "/api/chat", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SwitchModel switches the model backing an agent.
func (c *Client) SwitchModel(ctx context.Context, agent, provider, model, conversationID string) (*SwitchModelResult, error) {
	req := switchModelRequest{
		AgentName:      agent,
		ModelType:      provider,
		ModelName:      model,
		ConversationID: conversationID,
	}
	var res SwitchModelResult
	if err := c.post(ctx, "/api/switch-model", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Kill asks the backend to cancel the in-flight exchange for a conversation.
func (c *Client) Kill(ctx context.Context, conversationID string) error {
	return c.post(ctx, "/api/kill/"+url.PathEscape(conversationID), struct{}{}, nil)
}

// ListAgents returns all configured backend agents keyed by name.
func (c *Client) ListAgents(ctx context.Context) (map[string]domain.AgentInfo, error) {
	var res agentsResponse
	if err := c.get(ctx, "/api/agents", &res); err != nil {
		return nil, err
	}
	return res.Agents, nil
}

// ListConversations returns the stored conversations for an agent.
func (c *Client) ListConversations(ctx context.Context, agent string) ([]domain.ConversationSummary, error) {
	var res conversationsResponse
	if err := c.get(ctx, "/api/conversations/"+url.PathEscape(agent), &res); err != nil {
		return nil, err
	}
	return res.Conversations, nil
}

// GetConversation returns one stored conversation as raw JSON.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (json.RawMessage, error) {
	var res conversationResponse
	if err := c.get(ctx, "/api/conversation/"+url.PathEscape(conversationID), &res); err != nil {
		return nil, err
	}
	return res.Conversation, nil
}

// ReloadAgents asks the backend to reload agents from its configuration.
func (c *Client) ReloadAgents(ctx context.Context) (*ReloadResult, error) {
	var res ReloadResult
	if err := c.post(ctx, "/api/reload-agents", struct{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListProviders returns available model providers and their models.
func (c *Client) ListProviders(ctx context.Context) (*ProvidersResult, error) {
	var res ProvidersResult
	if err := c.get(ctx, "/api/providers", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListTools returns the tool names available to agents.
func (c *Client) ListTools(ctx context.Context) ([]string, error) {
	var res toolsResponse
	if err := c.get(ctx, "/api/tools", &res); err != nil {
		return nil, err
	}
	return res.Tools, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := remoteError(resp.StatusCode, data)
		c.log.Debug().
			Str("path", req.URL.Path).
			Int("status", resp.StatusCode).
			Str("detail", rerr.Detail).
			Msg("backend error")
		return rerr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", req.URL.Path, err)
	}
	return nil
}
