package generation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluedream1831-collab/threads/internal/models"
)

func TestParsePosts(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantCount int
		wantCode  string
	}{
		{
			name:      "Valid array",
			payload:   `[{"content":"上班好累","tags":["社畜"]}]`,
			wantCount: 1,
		},
		{
			name:      "Empty array is not an error",
			payload:   `[]`,
			wantCount: 0,
		},
		{
			name:      "Optional visual prompt",
			payload:   `[{"content":"x","tags":[],"visualPrompt":"a desk"}]`,
			wantCount: 1,
		},
		{
			name:     "Not an array",
			payload:  `{"content":"x"}`,
			wantCode: models.CodeSchemaMismatch,
		},
		{
			name:     "Missing content",
			payload:  `[{"tags":["a"]}]`,
			wantCode: models.CodeSchemaMismatch,
		},
		{
			name:     "Missing tags",
			payload:  `[{"content":"x"}]`,
			wantCode: models.CodeSchemaMismatch,
		},
		{
			name:     "Garbage",
			payload:  `not json at all`,
			wantCode: models.CodeSchemaMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := parsePosts(tt.payload)
			if tt.wantCode != "" {
				require.Error(t, err)
				var appErr *models.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, tt.wantCode, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Len(t, posts, tt.wantCount)
		})
	}
}

func TestParsePostsKeepsOrderAndFields(t *testing.T) {
	posts, err := parsePosts(`[
		{"content":"第一則","tags":["a","b"],"visualPrompt":"first"},
		{"content":"第二則","tags":["c"]}
	]`)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "第一則", posts[0].Content)
	assert.Equal(t, []string{"a", "b"}, posts[0].Tags)
	assert.Equal(t, "first", posts[0].VisualPrompt)
	assert.Equal(t, "第二則", posts[1].Content)
	assert.Empty(t, posts[1].VisualPrompt)
}

func TestClassifyProviderError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "Entity not found means bad credential",
			err:      errors.New("rpc error: requested entity was not found"),
			wantCode: models.CodeAuth,
		},
		{
			name:     "Invalid API key",
			err:      errors.New("API key not valid. Please pass a valid API key"),
			wantCode: models.CodeAuth,
		},
		{
			name:     "Permission denied",
			err:      errors.New("googleapi: Error 403: permission denied"),
			wantCode: models.CodeAuth,
		},
		{
			name:     "Rate limit is a provider error",
			err:      errors.New("googleapi: Error 429: resource exhausted"),
			wantCode: models.CodeProvider,
		},
		{
			name:     "Transport failure",
			err:      errors.New("dial tcp: connection refused"),
			wantCode: models.CodeProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := classifyProviderError(tt.err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestVideoConfigRequestsSingleVideo(t *testing.T) {
	g := &Gemini{cfg: Config{VideoResolution: "720p", VideoAspect: "16:9"}}
	cfg := g.videoConfig()
	assert.EqualValues(t, 1, cfg.NumberOfVideos)
	assert.Equal(t, "720p", cfg.Resolution)
	assert.Equal(t, "16:9", cfg.AspectRatio)
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGemini(t.Context(), Config{}, nil)
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeAuth, appErr.Code)
}
