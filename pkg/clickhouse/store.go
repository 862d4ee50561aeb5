package clickhouse

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/script"
	"github.com/pseudomuto/scmdb/pkg/scriptlog"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type (
	// ClickHouse defines the ClickHouse operations required by the Store.
	ClickHouse interface {
		Query(context.Context, string, ...any) (driver.Rows, error)
		Exec(context.Context, string, ...any) error
		Close() error
	}

	// Store is a scriptlog.Store backed by a ClickHouse table.
	Store struct {
		ch    ClickHouse
		table string
	}
)

// OpenStore connects to ClickHouse and returns a Store for opts.Table. It
// matches scriptlog.OpenFunc so it can be registered as a driver.
func OpenStore(ctx context.Context, opts scriptlog.Options) (scriptlog.Store, error) {
	conn, err := Connect(ctx, opts.DSN)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(conn, opts.Table)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return store, nil
}

// NewStore wraps an existing connection.
func NewStore(ch ClickHouse, table string) (*Store, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, errors.Errorf("invalid script log table name: %q", table)
	}

	return &Store{ch: ch, table: table}, nil
}

// Migrate creates the log table when it doesn't exist.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id String COMMENT 'Record id assigned on insert',
    name String COMMENT 'Script file name',
    file_hash String COMMENT 'SHA-1 of the script at scan time',
    ts DateTime64(9, 'UTC') COMMENT 'Modification time of the script at scan time',
    type LowCardinality(String) COMMENT 'COMMIT or ROLLBACK',
    status LowCardinality(String) COMMENT 'Lifecycle status',
    text String COMMENT 'Body of rollback scripts'
)
ENGINE = MergeTree()
ORDER BY (ts, name)`, s.table)

	return errors.Wrapf(s.ch.Exec(ctx, ddl), "failed to create table %s", s.table)
}

// All returns every record ordered by timestamp and name.
func (s *Store) All(ctx context.Context) ([]*script.Record, error) {
	return s.query(ctx, s.selectSQL()+" ORDER BY ts ASC, name ASC")
}

// Newest returns the most recently modified record, or nil when the log is empty.
func (s *Store) Newest(ctx context.Context) (*script.Record, error) {
	records, err := s.query(ctx, s.selectSQL()+" ORDER BY ts DESC, name DESC LIMIT 1")
	if err != nil || len(records) == 0 {
		return nil, err
	}

	return records[0], nil
}

// BatchCreate inserts records, assigning a UUID to each record without an ID.
func (s *Store) BatchCreate(ctx context.Context, records []*script.Record) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, name, file_hash, ts, type, status, text) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)

	for _, r := range records {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}

		if err := s.ch.Exec(ctx, query,
			id,
			r.Name,
			r.FileHash,
			r.Timestamp.UTC(),
			string(r.Type),
			string(r.Status),
			r.Text,
		); err != nil {
			return errors.Wrapf(err, "failed to insert script %s", r.Name)
		}

		r.ID = id
	}

	return nil
}

// DeleteByIDs removes the records with the given IDs and waits for the
// mutation to finish.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 2,
	}))

	query := fmt.Sprintf("ALTER TABLE %s DELETE WHERE has(?, id)", s.table)
	return errors.Wrap(s.ch.Exec(ctx, query, ids), "failed to delete scripts")
}

// InTx runs fn against the store. ClickHouse offers no transaction spanning
// the delete and insert statements.
func (s *Store) InTx(_ context.Context, fn func(scriptlog.Log) error) error {
	return fn(s)
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.ch.Close()
}

func (s *Store) selectSQL() string {
	return fmt.Sprintf("SELECT id, name, file_hash, ts, type, status, text FROM %s", s.table)
}

func (s *Store) query(ctx context.Context, query string) ([]*script.Record, error) {
	rows, err := s.ch.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load script log")
	}
	defer func() { _ = rows.Close() }()

	var records []*script.Record
	for rows.Next() {
		var (
			r      script.Record
			ts     time.Time
			typ    string
			status string
		)

		if err := rows.Scan(&r.ID, &r.Name, &r.FileHash, &ts, &typ, &status, &r.Text); err != nil {
			return nil, errors.Wrap(err, "failed to scan script log row")
		}

		r.Timestamp = ts
		r.Type = script.Type(typ)
		r.Status = script.Status(status)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate script log rows")
	}

	return records, nil
}
