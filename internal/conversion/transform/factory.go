package transform

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/hayeon-dev/ai-gallery/config"
)

// New builds the transform provider the configuration selects. Settings are
// a free-form map so each provider decodes only the keys it knows.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.TransformProvider {
	case "fal":
		var settings FalSettings
		if err := decodeSettings(cfg.TransformSettings, &settings); err != nil {
			return nil, fmt.Errorf("invalid fal settings: %w", err)
		}
		return NewFalProvider(settings)
	case "gemini":
		var settings GeminiSettings
		if err := decodeSettings(cfg.TransformSettings, &settings); err != nil {
			return nil, fmt.Errorf("invalid gemini settings: %w", err)
		}
		return NewGeminiProvider(ctx, settings)
	default:
		return nil, fmt.Errorf("unknown transform provider: %s", cfg.TransformProvider)
	}
}

func decodeSettings(raw map[string]interface{}, dest interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dest,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
