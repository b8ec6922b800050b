package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/plumenote/eventstore/domain/event"
	"github.com/plumenote/eventstore/domain/record"
)

// ddlFull creates the event table, every secondary index, and all
// auxiliary tables. Record bodies are stored as wire JSON; the typed
// columns exist to be indexed.
const ddlFull = `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		pubkey TEXT NOT NULL,
		kind INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		d_tag TEXT NOT NULL DEFAULT '',
		body BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	CREATE INDEX IF NOT EXISTS idx_events_pubkey ON events(pubkey);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	CREATE INDEX IF NOT EXISTS idx_events_pubkey_kind ON events(pubkey, kind);
	CREATE INDEX IF NOT EXISTS idx_events_pubkey_kind_d_tag ON events(pubkey, kind, d_tag);

	CREATE TABLE IF NOT EXISTS relays (
		url TEXT PRIMARY KEY,
		body BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS info (
		key TEXT NOT NULL,
		type TEXT NOT NULL,
		body BLOB NOT NULL,
		PRIMARY KEY (key, type)
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		body BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_timestamp ON notifications(timestamp);

	CREATE TABLE IF NOT EXISTS observed_relays (
		url TEXT PRIMARY KEY,
		body BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pubkey_relay_mappings (
		pubkey TEXT NOT NULL,
		url TEXT NOT NULL,
		body BLOB NOT NULL,
		PRIMARY KEY (pubkey, url)
	);
`

// ddlMinimal creates only the event table and the two indexes replacement
// depends on.
const ddlMinimal = `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		pubkey TEXT NOT NULL,
		kind INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		d_tag TEXT NOT NULL DEFAULT '',
		body BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_pubkey_kind ON events(pubkey, kind);
	CREATE INDEX IF NOT EXISTS idx_events_pubkey_kind_d_tag ON events(pubkey, kind, d_tag);
`

// Store is a SQLite-backed implementation of record.Store.
type Store struct {
	db     *sql.DB
	schema record.Schema
	closed atomic.Bool
}

// NewStore opens a SQLite record store with the given configuration.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	// Apply options
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:     db,
		schema: cfg.Schema,
	}

	// Auto-migrate if enabled
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// migrate creates the tables for the active schema tier.
func (s *Store) migrate() error {
	ddl := ddlFull
	if s.schema != record.SchemaFull {
		ddl = ddlMinimal
	}

	if _, err := s.db.Exec(ddl); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// physicalTables lists the tables the active schema carries.
func (s *Store) physicalTables() []string {
	if s.schema != record.SchemaFull {
		return []string{"events"}
	}
	return []string{"events", "relays", "info", "notifications", "observed_relays", "pubkey_relay_mappings"}
}

// check gates every operation on context and store liveness.
func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return record.ErrClosed
	}
	return nil
}

// auxCheck additionally gates operations on tables the minimal schema
// does not carry.
func (s *Store) auxCheck(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if s.schema != record.SchemaFull {
		return record.ErrSchemaReduced
	}
	return nil
}

// PutEvent inserts or overwrites an event by id.
func (s *Store) PutEvent(ctx context.Context, e *event.Event) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO events (id, pubkey, kind, created_at, d_tag, body)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.PubKey, e.Kind, e.CreatedAt, e.DTag(), body,
	)
	return err
}

// GetEvent returns the event with the given id or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var body []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM events WHERE id = ?", id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return event.Unmarshal(body)
}

// DeleteEvent removes an event. Deleting an absent id is a no-op.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	return err
}

// queryEvents runs an event query and decodes the body column.
func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]*event.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := make([]*event.Event, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}

		e, err := event.Unmarshal(body)
		if err != nil {
			continue // Skip malformed entries
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// EventsByKind returns all events of one kind.
func (s *Store) EventsByKind(ctx context.Context, kind int) ([]*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	return s.queryEvents(ctx,
		"SELECT body FROM events WHERE kind = ? ORDER BY created_at, id", kind)
}

// EventsByAuthor returns all events by one author.
func (s *Store) EventsByAuthor(ctx context.Context, pubkey string) ([]*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	return s.queryEvents(ctx,
		"SELECT body FROM events WHERE pubkey = ? ORDER BY created_at, id", pubkey)
}

// EventsByAuthorKind returns all events by one author with one kind.
func (s *Store) EventsByAuthorKind(ctx context.Context, pubkey string, kind int) ([]*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	return s.queryEvents(ctx,
		"SELECT body FROM events WHERE pubkey = ? AND kind = ? ORDER BY created_at, id",
		pubkey, kind)
}

// EventsByAuthorKindDTag narrows EventsByAuthorKind to one d tag.
func (s *Store) EventsByAuthorKindDTag(ctx context.Context, pubkey string, kind int, dTag string) ([]*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	return s.queryEvents(ctx,
		"SELECT body FROM events WHERE pubkey = ? AND kind = ? AND d_tag = ? ORDER BY created_at, id",
		pubkey, kind, dTag)
}

// EventsByCreatedRange returns events with since <= created_at <= until
// in ascending created_at order. until <= 0 means unbounded; limit <= 0
// means unlimited.
func (s *Store) EventsByCreatedRange(ctx context.Context, since, until int64, limit int) ([]*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	query := "SELECT body FROM events WHERE created_at >= ?"
	args := []any{since}

	if until > 0 {
		query += " AND created_at <= ?"
		args = append(args, until)
	}

	query += " ORDER BY created_at, id"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return s.queryEvents(ctx, query, args...)
}

// PutRelay upserts a relay record keyed by URL.
func (s *Store) PutRelay(ctx context.Context, r *record.Relay) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(r)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO relays (url, body) VALUES (?, ?)", r.URL, body)
	return err
}

// GetRelay returns a relay record or ErrNotFound.
func (s *Store) GetRelay(ctx context.Context, url string) (*record.Relay, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	var body []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM relays WHERE url = ?", url,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var r record.Relay
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Relays returns all relay records ordered by URL.
func (s *Store) Relays(ctx context.Context) ([]*record.Relay, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT body FROM relays ORDER BY url")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	relays := make([]*record.Relay, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}

		var r record.Relay
		if err := json.Unmarshal(body, &r); err != nil {
			continue
		}
		cp := r
		relays = append(relays, &cp)
	}

	return relays, rows.Err()
}

// PutInfo upserts a metadata record keyed by Key and Type.
func (s *Store) PutInfo(ctx context.Context, i *record.Info) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(i)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO info (key, type, body) VALUES (?, ?, ?)",
		i.Key, i.Type, body)
	return err
}

// GetInfo returns a metadata record or ErrNotFound.
func (s *Store) GetInfo(ctx context.Context, key, typ string) (*record.Info, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	var body []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM info WHERE key = ? AND type = ?", key, typ,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var i record.Info
	if err := json.Unmarshal(body, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// PutNotification upserts a notification keyed by id.
func (s *Store) PutNotification(ctx context.Context, n *record.Notification) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO notifications (id, timestamp, body) VALUES (?, ?, ?)",
		n.ID, n.Timestamp, body)
	return err
}

// NotificationsSince returns notifications with Timestamp >= since in
// ascending timestamp order.
func (s *Store) NotificationsSince(ctx context.Context, since int64) ([]*record.Notification, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT body FROM notifications WHERE timestamp >= ? ORDER BY timestamp, id", since)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	notifications := make([]*record.Notification, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}

		var n record.Notification
		if err := json.Unmarshal(body, &n); err != nil {
			continue
		}
		cp := n
		notifications = append(notifications, &cp)
	}

	return notifications, rows.Err()
}

// PutObservedRelay upserts relay health bookkeeping keyed by URL.
func (s *Store) PutObservedRelay(ctx context.Context, o *record.ObservedRelay) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(o)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO observed_relays (url, body) VALUES (?, ?)", o.URL, body)
	return err
}

// GetObservedRelay returns relay health bookkeeping or ErrNotFound.
func (s *Store) GetObservedRelay(ctx context.Context, url string) (*record.ObservedRelay, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	var body []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM observed_relays WHERE url = ?", url,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var o record.ObservedRelay
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// PutRelayMapping upserts an author-to-relay sighting.
func (s *Store) PutRelayMapping(ctx context.Context, m *record.RelayMapping) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(m)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO pubkey_relay_mappings (pubkey, url, body) VALUES (?, ?, ?)",
		m.PubKey, m.URL, body)
	return err
}

// RelayMappingsByPubKey returns every relay one author was seen on,
// ordered by URL.
func (s *Store) RelayMappingsByPubKey(ctx context.Context, pubkey string) ([]*record.RelayMapping, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT body FROM pubkey_relay_mappings WHERE pubkey = ? ORDER BY url", pubkey)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	mappings := make([]*record.RelayMapping, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}

		var m record.RelayMapping
		if err := json.Unmarshal(body, &m); err != nil {
			continue
		}
		cp := m
		mappings = append(mappings, &cp)
	}

	return mappings, rows.Err()
}

// Stats returns per-table record counts and approximate byte sizes.
func (s *Store) Stats(ctx context.Context) (record.Stats, error) {
	if err := s.check(ctx); err != nil {
		return record.Stats{}, err
	}

	logical := map[string]string{
		"events":                record.TableEvents,
		"relays":                record.TableRelays,
		"info":                  record.TableInfo,
		"notifications":         record.TableNotifications,
		"observed_relays":       record.TableObservedRelays,
		"pubkey_relay_mappings": record.TableRelayMappings,
	}

	stats := record.NewStats()
	for _, table := range s.physicalTables() {
		var count, bytes int64
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*), COALESCE(SUM(LENGTH(body)), 0) FROM "+table,
		).Scan(&count, &bytes)
		if err != nil {
			return record.Stats{}, err
		}
		stats.Tables[logical[table]] = record.TableStats{Count: count, Bytes: bytes}
	}
	return stats, nil
}

// Wipe destroys every row in every table without closing the store.
func (s *Store) Wipe(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range s.physicalTables() {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Schema reports the layout this store was opened with.
func (s *Store) Schema() record.Schema {
	return s.schema
}

// Close releases the database connection.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// Ensure Store implements record.Store
var _ record.Store = (*Store)(nil)
