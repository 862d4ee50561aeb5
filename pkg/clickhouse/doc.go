// Package clickhouse stores the script log in ClickHouse.
//
// The log table uses the MergeTree engine ordered by (ts, name). Deletes are
// issued as ALTER TABLE ... DELETE mutations and wait for completion through
// the mutations_sync setting so that a following read sees the new state.
//
// ClickHouse has no multi-statement transactions: InTx runs the callback
// against the store itself, so a failure between the delete and the insert of
// a reconciliation run is not rolled back. Use one of the SQL backends when
// that guarantee is required.
//
// Example usage:
//
//	store, err := clickhouse.OpenStore(ctx, scriptlog.Options{
//		DSN:   "clickhouse://default:@localhost:9000/default",
//		Table: "scmdb_scripts",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	newest, err := store.Newest(ctx)
package clickhouse
