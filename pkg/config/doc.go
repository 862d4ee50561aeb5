// Package config loads scmdb project configuration from YAML or TOML files.
//
// A minimal scmdb.yaml:
//
//	scripts_dir: db/scripts
//	owner: APP/secret@db1.example.com:1521:ORCL
//
// The same in scmdb.toml, with the script log kept in PostgreSQL:
//
//	scripts_dir = "db/scripts"
//	owner = "APP/secret@db1.example.com:1521:ORCL"
//
//	[log]
//	driver = "postgres"
//	dsn = "postgres://scmdb@localhost:5432/scmdb"
//
// Unset values fall back to the defaults in pkg/consts.
package config
