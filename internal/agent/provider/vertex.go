package provider

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// VertexClient runs Gemini models through Vertex AI with service account
// or application default credentials.
type VertexClient struct {
	client *genai.Client
	model  string
	logger logger.Logger
}

func NewVertexClient(ctx context.Context, projectID, region, model, credentialsFile string, log logger.Logger) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex: projectID and region cannot be empty")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := genai.NewClient(ctx, projectID, region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &VertexClient{client: client, model: model, logger: log.Named("vertex")}, nil
}

func (c *VertexClient) Name() string  { return "vertex" }
func (c *VertexClient) Model() string { return c.model }

func (c *VertexClient) AnalyzeDocument(ctx context.Context, prompt string, images [][]byte, maxTokens int) (map[string]any, error) {
	c.logger.Info("Sending request to Vertex AI", logger.String("model", c.model), logger.Int("images", len(images)))

	model := c.client.GenerativeModel(c.model)
	model.SetMaxOutputTokens(int32(maxTokens))

	parts := make([]genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, genai.ImageData("png", img))
	}
	parts = append(parts, genai.Text(prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		c.logger.Error("Vertex AI request failed", logger.Error(err))
		return nil, err
	}

	text, ok := vertexText(resp)
	if !ok {
		return nil, &common.MalformedResponseError{Raw: describeVertexReply(resp), Cause: fmt.Errorf("reply has no text parts")}
	}
	c.logger.Debug("Vertex response", logger.String("text", text))
	return ParseJSONResponse(text)
}

// vertexText concatenates the text parts of the first candidate.
func vertexText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}
	var sb strings.Builder
	found := false
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
			found = true
		}
	}
	return sb.String(), found
}

// describeVertexReply summarizes a reply that carried no text.
func describeVertexReply(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return "empty response"
	}
	var parts []string
	if resp.PromptFeedback != nil {
		parts = append(parts, fmt.Sprintf("prompt blocked: %v", resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) == 0 {
		parts = append(parts, "no candidates")
	}
	for i, cand := range resp.Candidates {
		n := 0
		if cand.Content != nil {
			n = len(cand.Content.Parts)
		}
		parts = append(parts, fmt.Sprintf("candidate %d: finish reason %v, %d non-text parts", i, cand.FinishReason, n))
	}
	return strings.Join(parts, "; ")
}

func (c *VertexClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
