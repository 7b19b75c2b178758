package provider

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/feichai0017/docfiler/pkg/logger"
)

const anthropicVersion = "2023-06-01"

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
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
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// ClaudeClient talks to the Anthropic Messages API.
type ClaudeClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClaudeClient(apiKey, model, baseURL string, log logger.Logger) *ClaudeClient {
	return &ClaudeClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
		logger:     log.Named("claude"),
	}
}

func (c *ClaudeClient) Name() string  { return "claude" }
func (c *ClaudeClient) Model() string { return c.model }

func (c *ClaudeClient) AnalyzeDocument(ctx context.Context, prompt string, images [][]byte, maxTokens int) (map[string]any, error) {
	c.logger.Info("Sending request to Claude", logger.String("model", c.model), logger.Int("images", len(images)))

	content := make([]claudeBlock, 0, len(images)+1)
	for _, img := range images {
		content = append(content, claudeBlock{
			Type: "image",
			Source: &claudeSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(img),
			},
		})
	}
	content = append(content, claudeBlock{Type: "text", Text: prompt})

	req := claudeRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: content}},
	}

	var resp claudeResponse
	raw, err := postJSON(ctx, c.httpClient, c.Name(), c.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}, req, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, emptyReply(raw, "content")
	}

	text := resp.Content[0].Text
	c.logger.Debug("Claude response", logger.String("text", text))
	return ParseJSONResponse(text)
}

func (c *ClaudeClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
