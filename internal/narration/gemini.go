package narration

import (
	"context"

	"google.golang.org/genai"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.0-flash"

// Gemini generates replies with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGemini creates a Gemini client from settings.
func NewGemini(ctx context.Context, settings *conf.NarrationSettings) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  settings.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.New(err).
			Component("narration").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_gemini_client").
			Build()
	}

	model := settings.Model
	if model == "" {
		model = DefaultModel
	}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(settings.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if settings.MaxTokens > 0 {
		config.MaxOutputTokens = int32(settings.MaxTokens)
	}

	return &Gemini{client: client, model: model, config: config}, nil
}

// Generate sends prompt as a single user turn and returns the reply text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		g.config)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.Newf("model %s returned an empty reply", g.model).
			Component("narration").
			Category(errors.CategoryNarration).
			Build()
	}
	return text, nil
}
