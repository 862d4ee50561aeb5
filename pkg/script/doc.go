// Package script models SQL change scripts and the records kept for them in
// the script log.
//
// A script directory holds commit scripts (*.sql) and rollback scripts
// (*_rollback.sql). Scan turns the directory into Records, computing a SHA-1
// content hash for auditing and retaining the full text of rollback scripts so
// they can be re-run after their files disappear from the directory.
//
// Records are identified by Name when reconciling. The hash is carried along
// but never used to decide whether two records describe the same script:
//
//	applied := script.Names(records)
//	if applied.Has("001_init.sql") {
//		// already known, regardless of content changes
//	}
//
// Classify maps a file name onto its Type (commit or rollback) and its Target
// schema (owner or "_user" companion).
package script
