package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/feichai0017/docfiler/pkg/logger"
)

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inline_data,omitempty"`
}

type geminiInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GeminiClient talks to the Generative Language API with an API key.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func NewGeminiClient(apiKey, model, baseURL string, log logger.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
		logger:     log.Named("gemini"),
	}
}

func (c *GeminiClient) Name() string  { return "gemini" }
func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) AnalyzeDocument(ctx context.Context, prompt string, images [][]byte, maxTokens int) (map[string]any, error) {
	c.logger.Info("Sending request to Gemini", logger.String("model", c.model), logger.Int("images", len(images)))

	parts := make([]geminiPart, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, geminiPart{InlineData: &geminiInline{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(img),
		}})
	}
	parts = append(parts, geminiPart{Text: prompt})

	req := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenConfig{MaxOutputTokens: maxTokens},
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	var resp geminiResponse
	raw, err := postJSON(ctx, c.httpClient, c.Name(), endpoint, nil, req, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, emptyReply(raw, "candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	c.logger.Debug("Gemini response", logger.String("text", text))
	return ParseJSONResponse(text)
}

func (c *GeminiClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
