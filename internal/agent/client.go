package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/homedash/internal/infrastructure/config"
)

const (
	// ResponseFormatDashboard asks the agent for a dashboard skeleton.
	ResponseFormatDashboard = "dashboard"

	chatPath = "/chat"

	// maxResponseSize caps the agent reply.
	maxResponseSize = 4 << 20

	// maxErrorBody is how much of an error reply is kept in HTTPError.
	maxErrorBody = 512

	defaultTimeout = 60 * time.Second
	defaultModel   = "gpt-4o"
)

// ChatRequest is the body POSTed to the agent's chat endpoint.
type ChatRequest struct {
	UserName          string  `json:"user_name"`
	ResponseFormat    string  `json:"response_format"`
	Input             string  `json:"input"`
	Model             string  `json:"model"`
	ConversationID    *string `json:"conversation_id"`
	PreviousMessageID *string `json:"previous_message_id"`
}

type chatResponse struct {
	Content struct {
		Dashboard json.RawMessage `json:"dashboard"`
	} `json:"content"`
}

// Client calls the agent over HTTP.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// New creates a client from the agent config section.
func New(cfg config.AgentConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

// RequestDashboard sends input on behalf of user and returns the dashboard
// the agent produced, exactly as received. The dashboard is validated
// against the embedded schema.
func (c *Client) RequestDashboard(ctx context.Context, user, input string) (json.RawMessage, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	body, err := json.Marshal(ChatRequest{
		UserName:       user,
		ResponseFormat: ResponseFormatDashboard,
		Input:          input,
		Model:          c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agent: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: calling %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort detail
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("agent: reading response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	dash := parsed.Content.Dashboard
	if len(dash) == 0 || string(dash) == "null" {
		return nil, ErrNoDashboard
	}
	if err := ValidateDashboard(dash); err != nil {
		return nil, err
	}
	return dash, nil
}
