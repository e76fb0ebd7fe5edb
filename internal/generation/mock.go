package generation

import (
	"context"
	"sync"

	"github.com/bluedream1831-collab/threads/internal/models"
	"github.com/bluedream1831-collab/threads/internal/prompt"
)

// Mock is a deterministic Provider for tests and local runs without a
// credential. It records every request it receives.
type Mock struct {
	mu sync.Mutex

	Posts    []models.Post
	TextErr  error
	Image    *Visual
	ImageErr error
	Video    *Visual
	VideoErr error

	TextRequests  []prompt.Request
	VisualPrompts []string
	VideoPrompts  []string
}

var _ Provider = (*Mock)(nil)

func (m *Mock) GenerateText(_ context.Context, req prompt.Request) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TextRequests = append(m.TextRequests, req)
	if m.TextErr != nil {
		return nil, m.TextErr
	}
	out := make([]models.Post, len(m.Posts))
	copy(out, m.Posts)
	return out, nil
}

func (m *Mock) GenerateImage(_ context.Context, enriched string) (*Visual, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VisualPrompts = append(m.VisualPrompts, enriched)
	if m.ImageErr != nil {
		return nil, m.ImageErr
	}
	return m.Image, nil
}

func (m *Mock) GenerateVideo(_ context.Context, enriched string) (*Visual, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VideoPrompts = append(m.VideoPrompts, enriched)
	if m.VideoErr != nil {
		return nil, m.VideoErr
	}
	return m.Video, nil
}
