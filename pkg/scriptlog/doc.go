// Package scriptlog persists the log of applied change scripts.
//
// The log is a single table holding one row per script record. The
// reconciliation engine reads the newest record as its checkpoint and mutates
// the log through two batch operations (delete by id, batch insert) that run
// inside one transaction scope:
//
//	store, err := scriptlog.Open(ctx, scriptlog.Options{Driver: "sqlite", DSN: "scmdb.db"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.InTx(ctx, func(l scriptlog.Log) error {
//		if err := l.DeleteByIDs(ctx, ids); err != nil {
//			return err
//		}
//		return l.BatchCreate(ctx, records)
//	})
//
// Supported drivers:
//   - sqlite: modernc.org/sqlite (pure Go, the default)
//   - postgres: github.com/jackc/pgx/v5 through database/sql
//   - mysql: github.com/go-sql-driver/mysql
//
// The clickhouse backend lives in the clickhouse package and is registered
// by the cmd package through Register.
package scriptlog
