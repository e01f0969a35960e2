// Package verdictcache caches compliance verdicts by evidence hash. Apart from the
// signature checks, which depend on the trust store, a verdict is a pure function of
// (context, recommendation); callers re-run the signature checks on every hit.
package verdictcache

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mindburn-Labs/recaudit/pkg/fairness"
)

// ErrEmptyKey is returned for empty cache keys.
var ErrEmptyKey = errors.New("verdictcache: empty key")

// Cache stores verdicts keyed by evidence hash. Get reports a miss with ok == false.
type Cache interface {
	Get(ctx context.Context, evidenceHash string) (v *fairness.Verdict, ok bool, err error)
	Put(ctx context.Context, evidenceHash string, v *fairness.Verdict) error
}

// Memory is a bounded in-process LRU cache.
type Memory struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

type memoryItem struct {
	key     string
	verdict []byte
}

// NewMemory creates an LRU cache holding at most capacity verdicts (minimum 1).
func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (m *Memory) Get(_ context.Context, key string) (*fairness.Verdict, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	m.mu.Lock()
	el, ok := m.items[key]
	if ok {
		m.order.MoveToFront(el)
	}
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	// Stored encoded so callers never share a mutable verdict.
	v, err := decode(el.Value.(*memoryItem).verdict)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (m *Memory) Put(_ context.Context, key string, v *fairness.Verdict) error {
	if key == "" {
		return ErrEmptyKey
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("verdictcache: encode: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		el.Value.(*memoryItem).verdict = raw
		m.order.MoveToFront(el)
		return nil
	}
	m.items[key] = m.order.PushFront(&memoryItem{key: key, verdict: raw})
	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memoryItem).key)
	}
	return nil
}

// Len returns the number of cached verdicts.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis cache. ttl <= 0 stores without expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: "recaudit:verdict:", ttl: ttl}
}

// DialRedis connects to addr and pings it.
func DialRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("verdictcache: ping %s: %w", addr, err)
	}
	return NewRedis(client, ttl), nil
}

func (r *Redis) Get(ctx context.Context, key string) (*fairness.Verdict, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("verdictcache: get: %w", err)
	}
	v, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, v *fairness.Verdict) error {
	if key == "" {
		return ErrEmptyKey
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("verdictcache: encode: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("verdictcache: set: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func decode(raw []byte) (*fairness.Verdict, error) {
	var v fairness.Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("verdictcache: decode: %w", err)
	}
	return &v, nil
}
