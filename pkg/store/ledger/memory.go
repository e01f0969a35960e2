package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
)

type entryKey struct {
	auditID string
	kind    Kind
}

// MemoryLedger is an in-process Ledger. Entries handed to callers are copies, so
// the stored chain cannot be mutated through them.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []*Entry
	byKey   map[entryKey]*Entry
	clock   func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byKey: make(map[entryKey]*Entry),
		clock: time.Now,
	}
}

// WithClock overrides the clock for testing.
func (m *MemoryLedger) WithClock(clock func() time.Time) *MemoryLedger {
	m.clock = clock
	return m
}

func (m *MemoryLedger) Append(_ context.Context, auditID string, kind Kind, payload any) (*Entry, error) {
	e, err := draft(auditID, kind, payload)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := entryKey{e.AuditID, e.Kind}
	if existing, ok := m.byKey[key]; ok {
		stored, err := resolve(existing, e)
		if err != nil {
			return nil, err
		}
		return clone(stored), nil
	}
	prev := GenesisHash
	if n := len(m.entries); n > 0 {
		prev = m.entries[n-1].EntryHash
	}
	if err := seal(e, uint64(len(m.entries)+1), prev, m.clock()); err != nil {
		return nil, err
	}
	m.entries = append(m.entries, e)
	m.byKey[key] = e
	return clone(e), nil
}

func (m *MemoryLedger) Get(_ context.Context, auditID string, kind Kind) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byKey[entryKey{canonicalize.Identifier(auditID), kind}]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(e), nil
}

func (m *MemoryLedger) ListByAudit(_ context.Context, auditID string) ([]*Entry, error) {
	id := canonicalize.Identifier(auditID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Entry{}
	for _, e := range m.entries {
		if e.AuditID == id {
			out = append(out, clone(e))
		}
	}
	return out, nil
}

func (m *MemoryLedger) All(_ context.Context) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = clone(e)
	}
	return out, nil
}

func (m *MemoryLedger) Verify(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return VerifyChain(m.entries)
}

func (m *MemoryLedger) Close() error { return nil }
