// Package generation wraps the hosted generative model behind a Provider
// interface so handlers and tests never touch the SDK directly.
package generation

import (
	"context"

	"github.com/bluedream1831-collab/threads/internal/models"
	"github.com/bluedream1831-collab/threads/internal/prompt"
)

// Visual is the outcome of an image or video generation: a locally
// addressable reference the client can render without ever seeing the
// provider credential.
type Visual struct {
	Ref  string `json:"ref"`
	MIME string `json:"mime"`
	Kind string `json:"kind"` // "image" or "video"
}

// Provider is the generation backend. GenerateImage and GenerateVideo take
// prompts already enriched by the prompt package. A nil Visual with a nil
// error means the provider returned no visual payload.
type Provider interface {
	GenerateText(ctx context.Context, req prompt.Request) ([]models.Post, error)
	GenerateImage(ctx context.Context, enriched string) (*Visual, error)
	GenerateVideo(ctx context.Context, enriched string) (*Visual, error)
}

// BlobSink stores fetched binaries and returns a locally addressable
// reference for them.
type BlobSink interface {
	Put(ctx context.Context, data []byte, mime string) (string, error)
}
