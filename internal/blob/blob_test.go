package blob

import (
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluedream1831-collab/threads/internal/models"
)

func TestStoreRedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewStore(client, time.Minute)

	ref, err := s.Put(t.Context(), []byte("video-bytes"), "video/mp4")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, RefPrefix))

	id := strings.TrimPrefix(ref, RefPrefix)
	data, mime, err := s.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("video-bytes"), data)
	assert.Equal(t, "video/mp4", mime)

	// Expiry removes both keys.
	mr.FastForward(2 * time.Minute)
	_, _, err = s.Get(t.Context(), id)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestStoreMemoryFallback(t *testing.T) {
	s := NewStore(nil, time.Minute)

	ref, err := s.Put(t.Context(), []byte{0x00, 0x01}, "image/png")
	require.NoError(t, err)
	id := strings.TrimPrefix(ref, RefPrefix)

	data, mime, err := s.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, data)
	assert.Equal(t, "image/png", mime)

	// The fallback honors the ttl too.
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = s.Get(t.Context(), id)
	assert.Error(t, err)

	_, _, err = s.Get(t.Context(), "nope")
	assert.Error(t, err)
}
