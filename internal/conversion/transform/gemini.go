package transform

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GeminiSettings configures the Gemini image model client.
type GeminiSettings struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GeminiProvider sends the source image inline with the style prompt and
// reads the transformed image back from the response parts.
type GeminiProvider struct {
	client   *genai.Client
	settings GeminiSettings
}

func NewGeminiProvider(ctx context.Context, settings GeminiSettings) (*GeminiProvider, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if settings.Model == "" {
		settings.Model = "gemini-2.5-flash-image-preview"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 120 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  settings.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, settings: settings}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Transform(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.settings.Timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Image, req.MimeType),
			genai.NewPartFromText(req.Prompt),
		}, genai.RoleUser),
	}

	result, err := p.client.Models.GenerateContent(ctx, p.settings.Model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return &Result{
				Image:    part.InlineData.Data,
				MimeType: mimeType,
				Model:    p.settings.Model,
			}, nil
		}
	}

	return nil, fmt.Errorf("no image data found in gemini response")
}
