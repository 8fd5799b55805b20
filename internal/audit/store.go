package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Entry is one recorded gateway action.
type Entry struct {
	ID           int64           `json:"id"`
	OccurredAt   time.Time       `json:"occurred_at"`
	ActorKind    string          `json:"actor_kind"`
	Actor        *string         `json:"actor,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   *string         `json:"resource_id,omitempty"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Route        *string         `json:"route,omitempty"`
	Status       int             `json:"status"`
	IP           *string         `json:"ip,omitempty"`
	UserAgent    *string         `json:"user_agent,omitempty"`
	RequestID    *string         `json:"request_id,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, e Entry) (Entry, error)
	List(ctx context.Context, limit, offset int) ([]Entry, int, error)
}

// DBTX is the subset of pgx used by PostgresStore. *pgxpool.Pool satisfies it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps entries in the audit_log table.
type PostgresStore struct {
	DB DBTX
}

const insertAuditLog = `INSERT INTO audit_log
    (actor_kind, actor, action, resource_type, resource_id, method, path, route, status, ip, user_agent, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, occurred_at`

const listAuditLogs = `SELECT id, occurred_at, actor_kind, actor, action, resource_type, resource_id,
    method, path, route, status, ip, user_agent, request_id, metadata
FROM audit_log
ORDER BY occurred_at DESC, id DESC
LIMIT $1 OFFSET $2`

// Insert implements Store.
func (s PostgresStore) Insert(ctx context.Context, e Entry) (Entry, error) {
	if s.DB == nil {
		return Entry{}, errors.New("audit: database not configured")
	}
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = []byte(e.Metadata)
	}
	err := s.DB.QueryRow(ctx, insertAuditLog,
		e.ActorKind, e.Actor, e.Action, e.ResourceType, e.ResourceID, e.Method, e.Path, e.Route,
		int32(e.Status), e.IP, e.UserAgent, e.RequestID, metadata,
	).Scan(&e.ID, &e.OccurredAt)
	return e, err
}

// List implements Store, newest first.
func (s PostgresStore) List(ctx context.Context, limit, offset int) ([]Entry, int, error) {
	if s.DB == nil {
		return nil, 0, errors.New("audit: database not configured")
	}
	var total int
	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.DB.Query(ctx, listAuditLogs, int32(limit), int32(offset))
	if err != nil {
		return nil, 0, err
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e      Entry
			status int32
			meta   []byte
		)
		err := row.Scan(&e.ID, &e.OccurredAt, &e.ActorKind, &e.Actor, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.Method, &e.Path, &e.Route, &status, &e.IP, &e.UserAgent, &e.RequestID, &meta)
		e.Status = int(status)
		if len(meta) > 0 {
			e.Metadata = json.RawMessage(meta)
		}
		return e, err
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// MemoryStore keeps entries in process memory. It is used when no database
// is configured and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Insert implements Store.
func (m *MemoryStore) Insert(_ context.Context, e Entry) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	if m.now == nil {
		m.now = time.Now
	}
	e.OccurredAt = m.now().UTC()
	m.entries = append(m.entries, e)
	return e, nil
}

// List implements Store, newest first.
func (m *MemoryStore) List(_ context.Context, limit, offset int) ([]Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := len(m.entries)
	out := []Entry{}
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, total, nil
}
