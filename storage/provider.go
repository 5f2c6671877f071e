package storage

import (
	"context"
	"io"
)

// Provider abstracts the blob store the gallery writes image bytes to.
// The rest of the application only holds identifiers, never bytes.
type Provider interface {
	// SaveWithContext writes a blob under the identifier.
	SaveWithContext(ctx context.Context, identifier string, file io.Reader) error

	// GetWithContext reads a blob back.
	GetWithContext(ctx context.Context, identifier string) (io.ReadSeeker, error)

	// DeleteWithContext removes a blob.
	DeleteWithContext(ctx context.Context, identifier string) error

	// Exists checks whether a blob is present.
	Exists(ctx context.Context, identifier string) (bool, error)

	// Health probes the backend.
	Health(ctx context.Context) error

	// Name returns the provider name.
	Name() string
}
