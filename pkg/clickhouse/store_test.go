package clickhouse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pseudomuto/scmdb/pkg/clickhouse"
	"github.com/pseudomuto/scmdb/pkg/script"
	"github.com/pseudomuto/scmdb/pkg/scriptlog"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	query string
	args  []any
}

type mockClickHouse struct {
	queryFunc func(context.Context, string, ...any) (driver.Rows, error)
	execFunc  func(context.Context, string, ...any) error
	queries   []string
	execs     []execCall
	closed    bool
}

func (m *mockClickHouse) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	m.queries = append(m.queries, query)
	if m.queryFunc != nil {
		return m.queryFunc(ctx, query, args...)
	}
	return &mockRows{}, nil
}

func (m *mockClickHouse) Exec(ctx context.Context, query string, args ...any) error {
	m.execs = append(m.execs, execCall{query: query, args: args})
	if m.execFunc != nil {
		return m.execFunc(ctx, query, args...)
	}
	return nil
}

func (m *mockClickHouse) Close() error {
	m.closed = true
	return nil
}

type mockRows struct {
	records []*script.Record
	pos     int
}

func (m *mockRows) Next() bool {
	if m.pos < len(m.records) {
		m.pos++
		return true
	}
	return false
}

func (m *mockRows) Scan(dest ...any) error {
	r := m.records[m.pos-1]
	*dest[0].(*string) = r.ID
	*dest[1].(*string) = r.Name
	*dest[2].(*string) = r.FileHash
	*dest[3].(*time.Time) = r.Timestamp
	*dest[4].(*string) = string(r.Type)
	*dest[5].(*string) = string(r.Status)
	*dest[6].(*string) = r.Text
	return nil
}

func (m *mockRows) Close() error                     { return nil }
func (m *mockRows) Err() error                       { return nil }
func (m *mockRows) ColumnTypes() []driver.ColumnType { return nil }
func (m *mockRows) Columns() []string                { return nil }
func (m *mockRows) ScanStruct(any) error             { return nil }
func (m *mockRows) Totals(...any) error              { return nil }

var _ scriptlog.Store = (*clickhouse.Store)(nil)

func TestNewStore_InvalidTable(t *testing.T) {
	for _, table := range []string{"", "1abc", "scripts; DROP TABLE x", "a.b.c"} {
		_, err := clickhouse.NewStore(&mockClickHouse{}, table)
		require.Error(t, err, table)
	}

	_, err := clickhouse.NewStore(&mockClickHouse{}, "ops.scmdb_scripts")
	require.NoError(t, err)
}

func TestStore_Migrate(t *testing.T) {
	ch := &mockClickHouse{}
	store, err := clickhouse.NewStore(ch, "scmdb_scripts")
	require.NoError(t, err)

	require.NoError(t, store.Migrate(context.Background()))
	require.Len(t, ch.execs, 1)
	require.Contains(t, ch.execs[0].query, "CREATE TABLE IF NOT EXISTS scmdb_scripts")
	require.Contains(t, ch.execs[0].query, "ENGINE = MergeTree()")
}

func TestStore_Newest(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty log", func(t *testing.T) {
		ch := &mockClickHouse{}
		store, err := clickhouse.NewStore(ch, "scmdb_scripts")
		require.NoError(t, err)

		rec, err := store.Newest(context.Background())
		require.NoError(t, err)
		require.Nil(t, rec)
		require.Contains(t, ch.queries[0], "ORDER BY ts DESC, name DESC LIMIT 1")
	})

	t.Run("returns row", func(t *testing.T) {
		ch := &mockClickHouse{
			queryFunc: func(context.Context, string, ...any) (driver.Rows, error) {
				return &mockRows{records: []*script.Record{{
					ID:        "abc",
					Name:      "002_rollback.sql",
					FileHash:  "ff",
					Timestamp: ts,
					Type:      script.Rollback,
					Status:    script.Executed,
					Text:      "DROP TABLE t;",
				}}}, nil
			},
		}
		store, err := clickhouse.NewStore(ch, "scmdb_scripts")
		require.NoError(t, err)

		rec, err := store.Newest(context.Background())
		require.NoError(t, err)
		require.Equal(t, "002_rollback.sql", rec.Name)
		require.Equal(t, script.Rollback, rec.Type)
		require.Equal(t, "DROP TABLE t;", rec.Text)
		require.True(t, rec.Timestamp.Equal(ts))
	})

	t.Run("query error", func(t *testing.T) {
		ch := &mockClickHouse{
			queryFunc: func(context.Context, string, ...any) (driver.Rows, error) {
				return nil, errors.New("boom")
			},
		}
		store, err := clickhouse.NewStore(ch, "scmdb_scripts")
		require.NoError(t, err)

		_, err = store.Newest(context.Background())
		require.ErrorContains(t, err, "boom")
	})
}

func TestStore_BatchCreate(t *testing.T) {
	ch := &mockClickHouse{}
	store, err := clickhouse.NewStore(ch, "scmdb_scripts")
	require.NoError(t, err)

	records := []*script.Record{
		{Name: "001.sql", Type: script.Commit, Status: script.Executed, Timestamp: time.Now()},
		{ID: "fixed", Name: "002.sql", Type: script.Commit, Status: script.Executed, Timestamp: time.Now()},
	}

	require.NoError(t, store.BatchCreate(context.Background(), records))
	require.Len(t, ch.execs, 2)
	require.NotEmpty(t, records[0].ID)
	require.Equal(t, "fixed", records[1].ID)
	require.Equal(t, records[0].ID, ch.execs[0].args[0])
	require.Equal(t, "001.sql", ch.execs[0].args[1])
}

func TestStore_DeleteByIDs(t *testing.T) {
	ch := &mockClickHouse{}
	store, err := clickhouse.NewStore(ch, "scmdb_scripts")
	require.NoError(t, err)

	require.NoError(t, store.DeleteByIDs(context.Background(), nil))
	require.Empty(t, ch.execs)

	require.NoError(t, store.DeleteByIDs(context.Background(), []string{"a", "b"}))
	require.Len(t, ch.execs, 1)
	require.Equal(t, "ALTER TABLE scmdb_scripts DELETE WHERE has(?, id)", ch.execs[0].query)
	require.Equal(t, []any{[]string{"a", "b"}}, ch.execs[0].args)
}

func TestStore_InTx(t *testing.T) {
	ch := &mockClickHouse{}
	store, err := clickhouse.NewStore(ch, "scmdb_scripts")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.InTx(context.Background(), func(l scriptlog.Log) error {
		require.NoError(t, l.DeleteByIDs(context.Background(), []string{"a"}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Len(t, ch.execs, 1)

	require.NoError(t, store.Close())
	require.True(t, ch.closed)
}
