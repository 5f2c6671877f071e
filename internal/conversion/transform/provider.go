package transform

import "context"

// Request carries the source image and the style prompt to an external
// model.
type Request struct {
	Image    []byte
	MimeType string
	Prompt   string
}

// Result is the transformed image.
type Result struct {
	Image    []byte
	MimeType string
	Model    string
}

// Provider is one external style-transfer backend.
type Provider interface {
	// Transform runs one style transfer. Implementations must respect ctx.
	Transform(ctx context.Context, req Request) (*Result, error)

	// Name returns the provider name.
	Name() string
}
