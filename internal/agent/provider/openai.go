package provider

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/feichai0017/docfiler/pkg/logger"
)

type openAIRequest struct {
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	MaxTokens           int             `json:"max_tokens,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string       `json:"role"`
	Content []openAIPart `json:"content"`
}

type openAIPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *openAIImage `json:"image_url,omitempty"`
}

type openAIImage struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIClient talks to the Chat Completions API.
type OpenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func NewOpenAIClient(apiKey, model, baseURL string, log logger.Logger) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
		logger:     log.Named("openai"),
	}
}

func (c *OpenAIClient) Name() string  { return "openai" }
func (c *OpenAIClient) Model() string { return c.model }

// usesCompletionTokens reports whether the model expects
// max_completion_tokens instead of max_tokens.
func usesCompletionTokens(model string) bool {
	return strings.HasPrefix(model, "o1-") || strings.HasPrefix(model, "gpt-5")
}

func (c *OpenAIClient) AnalyzeDocument(ctx context.Context, prompt string, images [][]byte, maxTokens int) (map[string]any, error) {
	c.logger.Info("Sending request to OpenAI", logger.String("model", c.model), logger.Int("images", len(images)))

	content := make([]openAIPart, 0, len(images)+1)
	for _, img := range images {
		content = append(content, openAIPart{
			Type:     "image_url",
			ImageURL: &openAIImage{URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)},
		})
	}
	content = append(content, openAIPart{Type: "text", Text: prompt})

	req := openAIRequest{
		Model:    c.model,
		Messages: []openAIMessage{{Role: "user", Content: content}},
	}
	if usesCompletionTokens(c.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	var resp openAIResponse
	raw, err := postJSON(ctx, c.httpClient, c.Name(), c.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, req, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, emptyReply(raw, "choices")
	}

	text := resp.Choices[0].Message.Content
	c.logger.Debug("OpenAI response", logger.String("text", text))
	return ParseJSONResponse(text)
}

func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
