// Package contextgen derives a filing context description from an existing
// folder tree with a text-only LLM call.
package contextgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/feichai0017/docfiler/pkg/logger"
)

const GenerationPrompt = `You are analyzing a document filing system's folder structure.

Your task is to generate a concise context description that will help an AI organize new documents
consistently with this existing structure.

Below is the folder structure and some example filenames:

{folder_info}

Based on this structure, generate a context description that includes:

1. **Filename Convention**: How filenames are encoded (e.g., date format, naming patterns)
2. **Folder Organization**: What categories/subcategories exist and what belongs in each
3. **Examples**: A few examples of the pattern

Keep it concise (max 500 words). Focus on the patterns that would help organize NEW documents.

Respond with ONLY the context description (no JSON, no preamble):
`

// EmptyContext is returned for trees without files. No model call is made.
const EmptyContext = "Empty folder structure - no context available."

type Options struct {
	MaxDepth       int
	MaxFilesPerDir int
	MaxTokens      int
}

func DefaultOptions() Options {
	return Options{MaxDepth: 4, MaxFilesPerDir: 5, MaxTokens: 2048}
}

type Generator struct {
	llm    llms.Model
	opts   Options
	logger logger.Logger
}

func NewGenerator(llm llms.Model, opts Options, log logger.Logger) *Generator {
	def := DefaultOptions()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MaxFilesPerDir <= 0 {
		opts.MaxFilesPerDir = def.MaxFilesPerDir
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = def.MaxTokens
	}
	return &Generator{llm: llm, opts: opts, logger: log.Named("contextgen")}
}

// BuildPrompt renders the folder listing into the generation prompt.
func (g *Generator) BuildPrompt(structure Structure) string {
	return strings.Replace(GenerationPrompt, "{folder_info}", Format(structure, g.opts.MaxFilesPerDir), 1)
}

// Generate scans root and asks the model for a context description.
func (g *Generator) Generate(ctx context.Context, root string) (string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("directory does not exist: %s", root)
	}

	g.logger.Info("Analyzing folder structure", logger.String("root", root))
	structure, err := Enumerate(root, g.opts.MaxDepth)
	if err != nil {
		return "", err
	}
	if len(structure) == 0 {
		g.logger.Warn("No files found", logger.String("root", root))
		return EmptyContext, nil
	}

	prompt := g.BuildPrompt(structure)
	g.logger.Debug("Folder info", logger.Int("folders", len(structure)))

	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithMaxTokens(g.opts.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("failed to generate context: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty context")
	}

	g.logger.Info("Context generated", logger.Int("chars", len(text)))
	return text, nil
}
