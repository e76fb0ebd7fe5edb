// Package blob stores generated media bytes and serves them back by id.
// Videos are too large for data URIs, so the provider layer writes them here
// and hands the card a short-lived reference path instead.
package blob

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bluedream1831-collab/threads/internal/models"
)

// RefPrefix is prepended to blob ids to form the reference path handed to
// cards. The server mounts the matching GET route.
const RefPrefix = "/api/v1/blobs/"

// DefaultTTL bounds how long a generated video stays fetchable.
const DefaultTTL = 30 * time.Minute

type entry struct {
	data    []byte
	mime    string
	expires time.Time
}

// Store keeps blobs in redis when a client is available and falls back to an
// in-process map otherwise. Both paths honor the ttl.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time

	mu  sync.Mutex
	mem map[string]entry
}

// NewStore returns a store backed by client, or by memory when client is nil.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		mem:    make(map[string]entry),
	}
}

// Put stores the bytes and returns the reference path to fetch them.
func (s *Store) Put(ctx context.Context, data []byte, mime string) (string, error) {
	id := uuid.NewString()
	if s.client != nil {
		pipe := s.client.TxPipeline()
		pipe.Set(ctx, dataKey(id), data, s.ttl)
		pipe.Set(ctx, mimeKey(id), mime, s.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return "", models.NewInternalError(err)
		}
		return RefPrefix + id, nil
	}

	s.mu.Lock()
	s.mem[id] = entry{data: data, mime: mime, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return RefPrefix + id, nil
}

// Get returns the bytes and MIME type for a blob id.
func (s *Store) Get(ctx context.Context, id string) ([]byte, string, error) {
	if s.client != nil {
		data, err := s.client.Get(ctx, dataKey(id)).Bytes()
		if err == redis.Nil {
			return nil, "", models.NewNotFoundError("blob", id)
		}
		if err != nil {
			return nil, "", models.NewInternalError(err)
		}
		mime, err := s.client.Get(ctx, mimeKey(id)).Result()
		if err != nil && err != redis.Nil {
			return nil, "", models.NewInternalError(err)
		}
		return data, mime, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.mem[id]
	if !ok || s.now().After(e.expires) {
		delete(s.mem, id)
		return nil, "", models.NewNotFoundError("blob", id)
	}
	return e.data, e.mime, nil
}

func dataKey(id string) string { return "blob:" + id + ":data" }
func mimeKey(id string) string { return "blob:" + id + ":mime" }
