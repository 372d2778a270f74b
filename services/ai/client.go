// Package aisvc talks to an OpenAI-compatible chat-completions provider.
package aisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core"
)

var (
	ErrNotConfigured = errors.New("AI provider is not configured")
	ErrUpstream      = errors.New("AI provider request failed")
)

type (
	Message struct {
		Role    string `json:"role" validate:"required,oneof=system user assistant"`
		Content string `json:"content" validate:"required"`
	}

	Reply struct {
		Content   string         `json:"content"`
		RequestID string         `json:"request_id"`
		Usage     map[string]int `json:"usage,omitempty"`
	}

	Client struct {
		baseURL string
		apiKey  string
		model   string
		httpc   *http.Client
		logger  core.Logger
	}
)

type (
	chatRequest struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}

	chatChoice struct {
		Message Message `json:"message"`
	}

	chatResponse struct {
		ID      string         `json:"id,omitempty"`
		Choices []chatChoice   `json:"choices"`
		Usage   map[string]int `json:"usage,omitempty"`
	}
)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.AI.BaseURL, "/"),
		apiKey:  conf.AI.APIKey,
		model:   conf.AI.Model,
		httpc:   &http.Client{Timeout: conf.AI.Timeout},
		logger:  logger,
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Chat sends a conversation to the provider and returns the first choice.
// model == "" uses the configured default.
func (c *Client) Chat(ctx context.Context, msgs []Message, model string) (Reply, error) {
	if !c.Configured() {
		return Reply{}, ErrNotConfigured
	}
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(chatRequest{Model: model, Messages: msgs})
	if err != nil {
		return Reply{}, errors.Wrap(err, "marshaling chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Reply{}, errors.Wrap(err, "creating chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpc.Do(req)
	if err != nil {
		return Reply{}, errors.Wrap(err, "calling AI provider")
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return Reply{}, errors.Wrap(err, "reading AI response")
	}
	if res.StatusCode >= http.StatusBadRequest {
		c.logger.Error(fmt.Sprintf("AI provider returned %d: %.200s", res.StatusCode, raw))
		return Reply{}, errors.Wrapf(ErrUpstream, "status %d", res.StatusCode)
	}

	var parsed chatResponse
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return Reply{}, errors.Wrap(ErrUpstream, "malformed AI response")
	}
	if len(parsed.Choices) == 0 {
		return Reply{}, errors.Wrap(ErrUpstream, "AI response has no choices")
	}

	return Reply{
		Content:   parsed.Choices[0].Message.Content,
		RequestID: parsed.ID,
		Usage:     parsed.Usage,
	}, nil
}

// Ping checks provider reachability for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return errors.Wrap(err, "creating ping request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "pinging AI provider")
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode >= http.StatusInternalServerError {
		return errors.Wrapf(ErrUpstream, "status %d", res.StatusCode)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence from an LLM reply;
// providers wrap JSON in ```json blocks more often than not.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
