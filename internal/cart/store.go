package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/tillworks/tillpoint-backend/pkg/errors"
	"github.com/tillworks/tillpoint-backend/pkg/redis"
)

// Store holds the single active cart per terminal.
type Store interface {
	Load(ctx context.Context, terminalID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Clear(ctx context.Context, terminalID uuid.UUID) error
}

const cartTTL = 24 * time.Hour

// RedisStore keeps active carts in Redis so a terminal can recover its
// draft after a process restart.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redis client required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context, terminalID uuid.UUID) (*Cart, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(terminalID.String()))
	if err != nil {
		if redis.IsNil(err) {
			return &Cart{TerminalID: terminalID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding cart")
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
	}
	if err := s.client.Set(ctx, s.client.CartKey(c.TerminalID.String()), string(payload), cartTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, terminalID uuid.UUID) error {
	if err := s.client.Del(ctx, s.client.CartKey(terminalID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

// MemoryStore is an in-process cart store for tests and single-node setups.
type MemoryStore struct {
	mtx   sync.RWMutex
	carts map[uuid.UUID]*Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[uuid.UUID]*Cart)}
}

func (s *MemoryStore) Load(_ context.Context, terminalID uuid.UUID) (*Cart, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	c, ok := s.carts[terminalID]
	if !ok {
		return &Cart{TerminalID: terminalID}, nil
	}
	clone := *c
	clone.Lines = append([]Line(nil), c.Lines...)
	return &clone, nil
}

func (s *MemoryStore) Save(_ context.Context, c *Cart) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	clone := *c
	clone.Lines = append([]Line(nil), c.Lines...)
	s.carts[c.TerminalID] = &clone
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, terminalID uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.carts, terminalID)
	return nil
}
