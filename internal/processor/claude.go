package processor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultClaudeBaseURL   = "https://api.anthropic.com/v1/messages"
	claudeAPIVersion       = "2023-06-01"
	defaultClaudeMaxTokens = 4096
)

// Claude talks to the Anthropic messages API.
type Claude struct {
	cfg httpConfig
}

// NewClaude returns a Claude provider. baseURL and client may be zero.
func NewClaude(apiKey, baseURL string, client *http.Client) *Claude {
	if baseURL == "" {
		baseURL = defaultClaudeBaseURL
	}
	return &Claude{cfg: newHTTPConfig(apiKey, baseURL, client)}
}

type claudeRequest struct {
	Model     string          `json:"model"`
	Messages  []claudeMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []claudeBlock `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Name implements Provider.
func (p *Claude) Name() string { return "claude" }

// Complete implements Provider.
func (p *Claude) Complete(ctx context.Context, req Request) (string, error) {
	var blocks []claudeBlock
	if req.Image != nil {
		blocks = append(blocks, claudeBlock{Type: "image", Source: &claudeSource{
			Type:      "base64",
			MediaType: "image/png",
			Data:      base64.StdEncoding.EncodeToString(req.Image.PNG),
		}})
	}
	blocks = append(blocks, claudeBlock{Type: "text", Text: req.Prompt})

	body, err := json.Marshal(claudeRequest{
		Model:     req.Model,
		Messages:  []claudeMessage{{Role: "user", Content: blocks}},
		MaxTokens: defaultClaudeMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	hreq.Header.Set("x-api-key", p.cfg.apiKey)
	hreq.Header.Set("anthropic-version", claudeAPIVersion)
	hreq.Header.Set("content-type", "application/json")

	resp, err := p.cfg.http.Do(hreq)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var cr claudeResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("api error: %s - %s", cr.Error.Type, cr.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error: %d - %s", resp.StatusCode, string(raw))
	}

	var sb strings.Builder
	for _, b := range cr.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no content returned")
	}
	return sb.String(), nil
}
