package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
)

// Dialect selects placeholder style and locking for a SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// advisoryLockKey serialises appends across Postgres sessions.
const advisoryLockKey = 7_215_004

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	sequence BIGINT PRIMARY KEY,
	audit_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	prev_hash TEXT NOT NULL,
	entry_hash TEXT NOT NULL UNIQUE,
	appended_at TEXT NOT NULL,
	UNIQUE (audit_id, kind)
);
`

const selectColumns = `SELECT sequence, audit_id, kind, payload, content_hash, prev_hash, entry_hash, appended_at FROM ledger_entries`

// SQLLedger is a Ledger over database/sql. SQLite (modernc) and Postgres (lib/pq)
// are supported.
type SQLLedger struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex // serialises appends within this process
	clock   func() time.Time
}

// NewSQLLedger wraps an open database. Call Init before first use.
func NewSQLLedger(db *sql.DB, dialect Dialect) *SQLLedger {
	return &SQLLedger{db: db, dialect: dialect, clock: time.Now}
}

// Open connects to driver/dsn, creates the schema and returns the ledger.
func Open(ctx context.Context, dialect Dialect, dsn string) (*SQLLedger, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("ledger: unsupported dialect %q", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	l := NewSQLLedger(db, dialect)
	if err := l.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// WithClock overrides the clock for testing.
func (s *SQLLedger) WithClock(clock func() time.Time) *SQLLedger {
	s.clock = clock
	return s
}

// Init creates the ledger table.
func (s *SQLLedger) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ledger: init schema: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders for the dialect.
func (s *SQLLedger) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLLedger) Append(ctx context.Context, auditID string, kind Kind, payload any) (*Entry, error) {
	e, err := draft(auditID, kind, payload)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.dialect == DialectPostgres {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
			return nil, fmt.Errorf("ledger: lock: %w", err)
		}
	}

	existing, err := scanOne(tx.QueryRowContext(ctx, s.rebind(selectColumns+` WHERE audit_id = ? AND kind = ?`), e.AuditID, string(e.Kind)))
	switch {
	case err == nil:
		return resolve(existing, e)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	var seq int64
	prev := GenesisHash
	var head sql.NullString
	row := tx.QueryRowContext(ctx, `SELECT sequence, entry_hash FROM ledger_entries ORDER BY sequence DESC LIMIT 1`)
	switch err := row.Scan(&seq, &head); {
	case errors.Is(err, sql.ErrNoRows):
		seq = 0
	case err != nil:
		return nil, fmt.Errorf("ledger: read head: %w", err)
	default:
		prev = head.String
	}

	if err := seal(e, uint64(seq)+1, prev, s.clock()); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO ledger_entries
		(sequence, audit_id, kind, payload, content_hash, prev_hash, entry_hash, appended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		int64(e.Sequence), e.AuditID, string(e.Kind), string(e.Payload), e.ContentHash, e.PrevHash, e.EntryHash,
		e.AppendedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ledger: commit: %w", err)
	}
	return e, nil
}

func (s *SQLLedger) Get(ctx context.Context, auditID string, kind Kind) (*Entry, error) {
	return scanOne(s.db.QueryRowContext(ctx, s.rebind(selectColumns+` WHERE audit_id = ? AND kind = ?`),
		canonicalize.Identifier(auditID), string(kind)))
}

func (s *SQLLedger) ListByAudit(ctx context.Context, auditID string) ([]*Entry, error) {
	return s.query(ctx, selectColumns+` WHERE audit_id = ? ORDER BY sequence`, canonicalize.Identifier(auditID))
}

func (s *SQLLedger) All(ctx context.Context) ([]*Entry, error) {
	return s.query(ctx, selectColumns+` ORDER BY sequence`)
}

func (s *SQLLedger) Verify(ctx context.Context) error {
	all, err := s.All(ctx)
	if err != nil {
		return err
	}
	return VerifyChain(all)
}

func (s *SQLLedger) Close() error {
	return s.db.Close()
}

func (s *SQLLedger) query(ctx context.Context, q string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (*Entry, error) {
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e          Entry
		seq        int64
		kind       string
		payload    string
		appendedAt string
	)
	if err := row.Scan(&seq, &e.AuditID, &kind, &payload, &e.ContentHash, &e.PrevHash, &e.EntryHash, &appendedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("ledger: scan: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, appendedAt)
	if err != nil {
		return nil, fmt.Errorf("ledger: parse appended_at: %w", err)
	}
	e.Sequence = uint64(seq)
	e.Kind = Kind(kind)
	e.Payload = []byte(payload)
	e.AppendedAt = at
	return &e, nil
}
