package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vbonduro/sitecheck/internal/db"
	"github.com/vbonduro/sitecheck/internal/docstore"
)

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	name string
	// lock is appended to the read half of a merge write.
	lock string
	// encodeTime converts updated_at to the column's native form.
	encodeTime func(time.Time) any
}

func (d dialect) bind(query string) string {
	if d.name != db.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	sqliteDialect = dialect{
		name:       db.DriverSQLite,
		encodeTime: func(t time.Time) any { return docstore.FormatTime(t) },
	}
	postgresDialect = dialect{
		name:       db.DriverPostgres,
		lock:       " FOR UPDATE",
		encodeTime: func(t time.Time) any { return t.UTC() },
	}
)

// DocumentStore keeps documents as JSON rows of a single documents table.
type DocumentStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func NewDocumentStore(conn *sql.DB, driver string) (*DocumentStore, error) {
	switch driver {
	case db.DriverSQLite:
		return &DocumentStore{db: conn, dialect: sqliteDialect, now: time.Now}, nil
	case db.DriverPostgres:
		return &DocumentStore{db: conn, dialect: postgresDialect, now: time.Now}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (s *DocumentStore) Get(ctx context.Context, path string) (*docstore.Snapshot, error) {
	_, id, err := docstore.Split(path)
	if err != nil {
		return nil, err
	}

	var (
		raw     []byte
		updated any
	)
	err = s.db.QueryRowContext(ctx, s.dialect.bind(`
		SELECT data, updated_at FROM documents WHERE path = ?
	`), path).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return decodeRow(path, id, raw, updated)
}

func (s *DocumentStore) Set(ctx context.Context, path string, data map[string]any, merge bool) error {
	collection, _, err := docstore.Split(path)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if merge {
		var raw []byte
		err := tx.QueryRowContext(ctx, s.dialect.bind(`
			SELECT data FROM documents WHERE path = ?`+s.dialect.lock), path).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to read document for merge: %w", err)
		default:
			var existing map[string]any
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("failed to decode stored document %s: %w", path, err)
			}
			data = docstore.Merge(existing, data)
		}
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.bind(`
		INSERT INTO documents (path, collection, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`), path, collection, string(encoded), s.dialect.encodeTime(s.now())); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

func (s *DocumentStore) Query(ctx context.Context, collection string, q docstore.Query) ([]*docstore.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.bind(`
		SELECT path, data, updated_at FROM documents WHERE collection = ? ORDER BY path ASC
	`), collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []*docstore.Snapshot
	for rows.Next() {
		var (
			path    string
			raw     []byte
			updated any
		)
		if err := rows.Scan(&path, &raw, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		snap, err := decodeRow(path, path[strings.LastIndex(path, "/")+1:], raw, updated)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docstore.Apply(snaps, q)
}

// Delete removes the document at path. Deleting a missing document is not an
// error.
func (s *DocumentStore) Delete(ctx context.Context, path string) error {
	if _, _, err := docstore.Split(path); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.bind(`
		DELETE FROM documents WHERE path = ?
	`), path); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func decodeRow(path, id string, raw []byte, updated any) (*docstore.Snapshot, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode stored document %s: %w", path, err)
	}
	if data == nil {
		data = map[string]any{}
	}

	snap := &docstore.Snapshot{Path: path, ID: id, Data: data}
	switch t := updated.(type) {
	case time.Time:
		snap.UpdatedAt = t.UTC()
	case []byte:
		ts, err := docstore.ParseTime(string(t))
		if err != nil {
			return nil, err
		}
		snap.UpdatedAt = ts
	default:
		ts, err := docstore.ParseTime(t)
		if err != nil {
			return nil, err
		}
		snap.UpdatedAt = ts
	}
	return snap, nil
}
