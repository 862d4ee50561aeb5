package clickhouse

import (
	"context"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"
)

// Connect opens a native protocol connection to ClickHouse and pings it.
//
// The DSN may be a full clickhouse:// URL or a bare "host:port" address.
//
// Example:
//
//	conn, err := clickhouse.Connect(ctx, "localhost:9000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
func Connect(ctx context.Context, dsn string) (driver.Conn, error) {
	opts, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ClickHouse connection")
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to ping ClickHouse")
	}

	return conn, nil
}

func parseDSN(dsn string) (*clickhouse.Options, error) {
	if !strings.Contains(dsn, "://") {
		return &clickhouse.Options{Addr: []string{dsn}}, nil
	}

	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ClickHouse dsn")
	}

	return opts, nil
}
