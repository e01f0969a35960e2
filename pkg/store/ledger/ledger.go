// Package ledger implements the append-only audit trail: hash-chained entries keyed
// by (audit id, kind), idempotent on identical content.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
)

var (
	// ErrNotFound is returned when no entry exists for a key.
	ErrNotFound = errors.New("ledger: not found")
	// ErrConflict is returned when a key is re-appended with different content.
	ErrConflict = errors.New("ledger: conflicting entry for audit id")
	// ErrChainBroken is returned by Verify when the hash chain does not link up.
	ErrChainBroken = errors.New("ledger: hash chain is broken")
	// ErrInvalidEntry is returned for appends missing an audit id or kind.
	ErrInvalidEntry = errors.New("ledger: invalid entry")
)

// GenesisHash is the prev_hash of the first entry.
const GenesisHash = "genesis"

// Kind distinguishes what an entry stores for an audit id.
type Kind string

const (
	KindRecord Kind = "AUDIT_RECORD"
	KindReport Kind = "AUDIT_REPORT"
)

// Entry is one immutable ledger line.
type Entry struct {
	Sequence    uint64          `json:"sequence"`
	AuditID     string          `json:"audit_id"`
	Kind        Kind            `json:"kind"`
	Payload     json.RawMessage `json:"payload"` // canonical JSON
	ContentHash string          `json:"content_hash"`
	PrevHash    string          `json:"prev_hash"`
	EntryHash   string          `json:"entry_hash"`
	AppendedAt  time.Time       `json:"appended_at"`
}

// Decode unmarshals the payload into v.
func (e *Entry) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Ledger is the append-only audit trail collaborator. Appends for the same key are
// serialised: the first write wins, identical re-appends return the stored entry.
type Ledger interface {
	Append(ctx context.Context, auditID string, kind Kind, payload any) (*Entry, error)
	Get(ctx context.Context, auditID string, kind Kind) (*Entry, error)
	ListByAudit(ctx context.Context, auditID string) ([]*Entry, error)
	All(ctx context.Context) ([]*Entry, error)
	Verify(ctx context.Context) error
	Close() error
}

// draft canonicalises a payload and computes its content hash.
func draft(auditID string, kind Kind, payload any) (*Entry, error) {
	id := canonicalize.Identifier(auditID)
	if id == "" || kind == "" {
		return nil, fmt.Errorf("%w: audit id and kind are required", ErrInvalidEntry)
	}
	raw, err := canonicalize.JCS(payload)
	if err != nil {
		return nil, fmt.Errorf("ledger: canonicalize payload: %w", err)
	}
	return &Entry{
		AuditID:     id,
		Kind:        kind,
		Payload:     raw,
		ContentHash: canonicalize.HashBytes(raw),
	}, nil
}

// seal links e after prev and fills its entry hash.
func seal(e *Entry, seq uint64, prevHash string, at time.Time) error {
	e.Sequence = seq
	e.PrevHash = prevHash
	e.AppendedAt = at.UTC()
	h, err := entryHash(e)
	if err != nil {
		return err
	}
	e.EntryHash = h
	return nil
}

func entryHash(e *Entry) (string, error) {
	h, err := canonicalize.CanonicalHash(struct {
		Sequence    uint64 `json:"sequence"`
		AuditID     string `json:"audit_id"`
		Kind        Kind   `json:"kind"`
		ContentHash string `json:"content_hash"`
		PrevHash    string `json:"prev_hash"`
	}{e.Sequence, e.AuditID, e.Kind, e.ContentHash, e.PrevHash})
	if err != nil {
		return "", fmt.Errorf("ledger: entry hash: %w", err)
	}
	return h, nil
}

// resolve applies the idempotency rule to an existing entry.
func resolve(existing, candidate *Entry) (*Entry, error) {
	if existing.ContentHash == candidate.ContentHash {
		return existing, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrConflict, candidate.AuditID, candidate.Kind)
}

// CheckAppend reports whether appending payload under (auditID, kind) would succeed
// without writing: nil when the key is free or holds identical content, ErrConflict
// otherwise. Callers appending several entries for one audit check them all first so
// a conflict on a later kind leaves nothing half-written.
func CheckAppend(ctx context.Context, l Ledger, auditID string, kind Kind, payload any) error {
	candidate, err := draft(auditID, kind, payload)
	if err != nil {
		return err
	}
	existing, err := l.Get(ctx, candidate.AuditID, kind)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	_, err = resolve(existing, candidate)
	return err
}

// clone returns a deep copy of e.
func clone(e *Entry) *Entry {
	c := *e
	c.Payload = append(json.RawMessage(nil), e.Payload...)
	return &c
}

// VerifyChain checks sequence continuity, content hashes and hash links of entries
// ordered by sequence.
func VerifyChain(entries []*Entry) error {
	prev := GenesisHash
	for i, e := range entries {
		if e.Sequence != uint64(i+1) {
			return fmt.Errorf("%w: expected sequence %d, got %d", ErrChainBroken, i+1, e.Sequence)
		}
		if canonicalize.HashBytes(e.Payload) != e.ContentHash {
			return fmt.Errorf("%w: content hash mismatch at sequence %d", ErrChainBroken, e.Sequence)
		}
		if e.PrevHash != prev {
			return fmt.Errorf("%w: prev_hash mismatch at sequence %d", ErrChainBroken, e.Sequence)
		}
		h, err := entryHash(e)
		if err != nil {
			return err
		}
		if h != e.EntryHash {
			return fmt.Errorf("%w: entry hash mismatch at sequence %d", ErrChainBroken, e.Sequence)
		}
		prev = e.EntryHash
	}
	return nil
}
