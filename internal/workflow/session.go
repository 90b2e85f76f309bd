// Package workflow drives the multi-step import flows: product imports that
// pause for operator review when existing catalog entries match, and pallet
// listing receptions that go through column mapping and row review before a
// receipt is created. Pending state lives in a session store keyed by an
// opaque token so a confirm or cancel can only act on the upload it belongs
// to.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionTTL bounds how long a pending import survives without confirmation.
const SessionTTL = 2 * time.Hour

const sessionPrefix = "wms:import:pending:"

// ErrSessionExpired is returned when a token no longer resolves to pending
// state, either because it was never issued, was already consumed, or aged
// out.
var ErrSessionExpired = errors.New("import session expired")

// SessionStore persists pending import state between the upload and the
// confirm or cancel request.
type SessionStore interface {
	Put(ctx context.Context, token string, state interface{}) error
	// Get unmarshals the stored state into dst, or returns
	// ErrSessionExpired when the token resolves to nothing.
	Get(ctx context.Context, token string, dst interface{}) error
	Delete(ctx context.Context, token string) error
}

// RedisSessionStore keeps pending imports in Redis so confirmation can land
// on any instance behind the load balancer.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: SessionTTL}
}

func (s *RedisSessionStore) Put(ctx context.Context, token string, state interface{}) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionPrefix+token, raw, s.ttl).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, token string, dst interface{}) error {
	raw, err := s.client.Get(ctx, sessionPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrSessionExpired
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionPrefix+token).Err()
}

// MemorySessionStore is an in-process SessionStore for tests and single
// instance deployments. Entries expire lazily on Get.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]memoryEntry), ttl: SessionTTL}
}

func (s *MemorySessionStore) Put(_ context.Context, token string, state interface{}) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{raw: raw, expires: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, token string, dst interface{}) error {
	s.mu.Lock()
	entry, ok := s.entries[token]
	if ok && time.Now().After(entry.expires) {
		delete(s.entries, token)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionExpired
	}
	return json.Unmarshal(entry.raw, dst)
}

func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}
