// Package cmd provides CLI commands for the scmdb tool.
//
// Each command is implemented as a function returning a *cli.Command,
// following the urfave/cli/v3 pattern. Commands load the project
// configuration lazily so that help and version output work outside of a
// project.
//
// # Available Commands
//
//   - init: create scmdb.yaml and the script directory
//   - sync: reconcile the script directory, stage and execute scripts
//   - status: show what sync would do without changing anything
//   - import: record every script as executed (baseline an existing database)
//   - exec: run specific script files through SQL*Plus
//   - check-connection: validate a connection string
//
// # Global Options
//
//   - --dir, -d: project directory (defaults to current directory)
//   - --config, -c: configuration file (defaults to <dir>/scmdb.yaml)
//   - --log-level, --log-format: override the logging configuration
//
// # Example Usage
//
//	scmdb init --owner APP/secret@db1:1521:ORCL
//	scmdb status
//	scmdb sync --continue-on-error
//	scmdb --dir db sync --owner APP/secret@db1:1521:ORCL
//	scmdb exec hotfix_user.sql
//	scmdb check-connection APP/secret@//db1:1521/orclpdb
package cmd
