package scriptlog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/script"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// deleteChunkSize bounds the number of placeholders in a single DELETE.
const deleteChunkSize = 500

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type (
	// dialect holds the driver specific SQL for the log table.
	dialect struct {
		name        string
		createTable string
		placeholder func(int) string
	}

	querier interface {
		ExecContext(context.Context, string, ...any) (sql.Result, error)
		QueryContext(context.Context, string, ...any) (*sql.Rows, error)
		QueryRowContext(context.Context, string, ...any) *sql.Row
		PrepareContext(context.Context, string) (*sql.Stmt, error)
	}

	// SQLStore is a Store backed by database/sql.
	SQLStore struct {
		db *sql.DB
		sqlLog
	}

	sqlLog struct {
		q       querier
		dialect dialect
		table   string
	}
)

var (
	sqliteDialect = dialect{
		name: "sqlite",
		createTable: `CREATE TABLE IF NOT EXISTS %s (
  id        TEXT PRIMARY KEY,
  name      TEXT NOT NULL,
  file_hash TEXT NOT NULL DEFAULT '',
  ts        INTEGER NOT NULL,
  type      TEXT NOT NULL,
  status    TEXT NOT NULL,
  text      TEXT NOT NULL DEFAULT ''
)`,
		placeholder: func(int) string { return "?" },
	}

	postgresDialect = dialect{
		name: "postgres",
		createTable: `CREATE TABLE IF NOT EXISTS %s (
  id        VARCHAR(36) PRIMARY KEY,
  name      VARCHAR(255) NOT NULL,
  file_hash VARCHAR(40) NOT NULL DEFAULT '',
  ts        BIGINT NOT NULL,
  type      VARCHAR(16) NOT NULL,
  status    VARCHAR(16) NOT NULL,
  text      TEXT NOT NULL DEFAULT ''
)`,
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
	}

	mysqlDialect = dialect{
		name: "mysql",
		createTable: `CREATE TABLE IF NOT EXISTS %s (
  id        VARCHAR(36) PRIMARY KEY,
  name      VARCHAR(255) NOT NULL,
  file_hash VARCHAR(40) NOT NULL DEFAULT '',
  ts        BIGINT NOT NULL,
  type      VARCHAR(16) NOT NULL,
  status    VARCHAR(16) NOT NULL,
  text      MEDIUMTEXT NOT NULL
)`,
		placeholder: func(int) string { return "?" },
	}
)

func init() {
	Register("sqlite", openSQLite)
	Register("postgres", openPostgres)
	Register("mysql", openMySQL)
}

func openSQLite(ctx context.Context, opts Options) (Store, error) {
	db, err := sql.Open("sqlite", opts.DSN)
	if err != nil {
		return nil, err
	}

	// a single connection keeps :memory: databases alive and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqliteDialect, opts.Table)
}

func openPostgres(ctx context.Context, opts Options) (Store, error) {
	cfg, err := pgx.ParseConfig(opts.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse postgres dsn")
	}

	return newSQLStore(ctx, stdlib.OpenDB(*cfg), postgresDialect, opts.Table)
}

func openMySQL(ctx context.Context, opts Options) (Store, error) {
	cfg, err := mysql.ParseDSN(opts.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse mysql dsn")
	}
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}

	return newSQLStore(ctx, sql.OpenDB(connector), mysqlDialect, opts.Table)
}

// NewSQLStore wraps an open database handle. driver selects the SQL dialect
// and must be one of sqlite, postgres or mysql.
func NewSQLStore(ctx context.Context, db *sql.DB, driver, table string) (*SQLStore, error) {
	var d dialect
	switch strings.ToLower(driver) {
	case "sqlite":
		d = sqliteDialect
	case "postgres":
		d = postgresDialect
	case "mysql":
		d = mysqlDialect
	default:
		return nil, errors.Errorf("no SQL dialect for driver '%s'", driver)
	}

	return newSQLStore(ctx, db, d, table)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, table string) (*SQLStore, error) {
	if !tableNamePattern.MatchString(table) {
		_ = db.Close()
		return nil, errors.Errorf("invalid script log table name: %q", table)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping script log database")
	}

	return &SQLStore{
		db:     db,
		sqlLog: sqlLog{q: db, dialect: d, table: table},
	}, nil
}

// Migrate creates the log table when it doesn't exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(s.dialect.createTable, s.table))
	return errors.Wrapf(err, "failed to create table %s", s.table)
}

// All returns every record ordered by timestamp and name.
func (s *SQLStore) All(ctx context.Context) ([]*script.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.selectSQL()+" ORDER BY ts ASC, name ASC")
	if err != nil {
		return nil, errors.Wrap(err, "failed to load script log")
	}
	defer func() { _ = rows.Close() }()

	var records []*script.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate script log rows")
	}

	return records, nil
}

// InTx runs fn inside a database transaction.
func (s *SQLStore) InTx(ctx context.Context, fn func(Log) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqlLog{q: tx, dialect: s.dialect, table: s.table}); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// BatchCreate inserts records in a single transaction.
func (s *SQLStore) BatchCreate(ctx context.Context, records []*script.Record) error {
	return s.InTx(ctx, func(l Log) error { return l.BatchCreate(ctx, records) })
}

// DeleteByIDs deletes records in a single transaction.
func (s *SQLStore) DeleteByIDs(ctx context.Context, ids []string) error {
	return s.InTx(ctx, func(l Log) error { return l.DeleteByIDs(ctx, ids) })
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (l *sqlLog) Newest(ctx context.Context) (*script.Record, error) {
	row := l.q.QueryRowContext(ctx, l.selectSQL()+" ORDER BY ts DESC, name DESC LIMIT 1")

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return r, err
}

func (l *sqlLog) BatchCreate(ctx context.Context, records []*script.Record) error {
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (id, name, file_hash, ts, type, status, text) VALUES (%s)",
		l.table,
		l.placeholders(1, 7),
	)

	stmt, err := l.q.PrepareContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, "failed to prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}

		if _, err := stmt.ExecContext(ctx,
			id,
			r.Name,
			r.FileHash,
			r.Timestamp.UnixNano(),
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

func (l *sqlLog) DeleteByIDs(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += deleteChunkSize {
		end := min(start+deleteChunkSize, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", l.table, l.placeholders(1, len(chunk)))
		if _, err := l.q.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "failed to delete scripts")
		}
	}

	return nil
}

func (l *sqlLog) selectSQL() string {
	return fmt.Sprintf("SELECT id, name, file_hash, ts, type, status, text FROM %s", l.table)
}

func (l *sqlLog) placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = l.dialect.placeholder(from + i)
	}

	return strings.Join(parts, ", ")
}

type rowScanner interface {
	Scan(...any) error
}

func scanRecord(row rowScanner) (*script.Record, error) {
	var (
		r      script.Record
		ts     int64
		typ    string
		status string
	)

	if err := row.Scan(&r.ID, &r.Name, &r.FileHash, &ts, &typ, &status, &r.Text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan script log row")
	}

	r.Timestamp = time.Unix(0, ts)
	r.Type = script.Type(typ)
	r.Status = script.Status(status)

	return &r, nil
}
