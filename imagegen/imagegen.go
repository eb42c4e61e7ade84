// Package imagegen turns a text prompt into a PNG image with a Gemini model.
package imagegen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/zero-day-ai/moviequery"
)

// DefaultModel is the image-capable model used when none is configured.
const DefaultModel = "gemini-2.0-flash-preview-image-generation"

// ContentGenerator is the slice of the Gemini models API the generator uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures a Generator.
type Config struct {
	APIKey string
	Model  string
}

// Generator produces images from prompts. It is safe for concurrent use.
type Generator struct {
	models ContentGenerator
	model  string
	logger *slog.Logger
}

// New creates a Generator backed by the Gemini API. An empty API key is a
// configuration error.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, moviequery.NewConfigurationError("imagegen.New",
			fmt.Errorf("%w: set GOOGLE_API_KEY, GOOGLE_GENAI_API_KEY or GENAI_API_KEY", moviequery.ErrMissingCredentials))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, moviequery.NewConfigurationError("imagegen.New", err)
	}

	return NewWithGenerator(client.Models, cfg.Model, logger), nil
}

// NewWithGenerator creates a Generator over an existing models API.
func NewWithGenerator(models ContentGenerator, model string, logger *slog.Logger) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{models: models, model: model, logger: logger}
}

// Generate returns the bytes of the first image in the model's response.
func (g *Generator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, moviequery.NewValidationError("Generator.Generate", moviequery.ErrEmptyPrompt)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, moviequery.NewExecutionError("Generator.Generate", err).
			WithContext(map[string]any{"model": g.model})
	}

	if data := firstImage(resp); data != nil {
		g.logger.Debug("image generated", "model", g.model, "bytes", len(data))
		return data, nil
	}

	return nil, moviequery.NewExecutionError("Generator.Generate", moviequery.ErrNoImage).
		WithContext(map[string]any{"model": g.model})
}

func firstImage(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}
