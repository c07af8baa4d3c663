// Package aisvc is the HTTP client for the assistant completion endpoint:
// one non-streaming request per invocation, no SDK.
package aisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assistant"
)

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ assistant.Completer = (*Client)(nil)

func NewClient() *Client {
	return &Client{
		apiKey:     core.Conf.GetString("assistantApiKey"),
		baseURL:    core.Conf.GetString("assistantURL"),
		model:      core.Conf.GetString("assistantModel"),
		httpClient: &http.Client{Timeout: core.Conf.GetDuration("assistantTimeout")},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type completionResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the system instruction, the bounded prior turns and the new
// query, and returns the single text completion.
func (c *Client) Complete(ctx context.Context, system string, history []assistant.Turn, query string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("assistant API key is not configured")
	}
	if c.baseURL == "" {
		return "", errors.New("assistant URL is not configured")
	}

	// backend-default timeout when the caller imposed no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	msgs := make([]message, 0, len(history)+1)
	for _, t := range history {
		msgs = append(msgs, message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, message{Role: assistant.RoleUser, Content: query})

	reqBody := completionRequest{
		Model:     c.model,
		MaxTokens: 1024,
		System:    system,
		Messages:  msgs,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "encoding completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "building completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "completion request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "reading completion response")
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", errors.Wrapf(err, "decoding completion response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		if out.Error != nil {
			return "", errors.Errorf("completion failed (status %d): %s", resp.StatusCode, out.Error.Message)
		}
		return "", errors.Errorf("completion failed (status %d)", resp.StatusCode)
	}

	var text bytes.Buffer
	for _, block := range out.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.Errorf("empty completion after %s", time.Since(start).Round(time.Millisecond))
	}
	return text.String(), nil
}
