package cmd

import (
	"context"

	"github.com/pseudomuto/scmdb/pkg/clickhouse"
	"github.com/pseudomuto/scmdb/pkg/scriptlog"
	"github.com/urfave/cli/v3"
)

func init() {
	scriptlog.Register("clickhouse", clickhouse.OpenStore)
}

// NewApp builds the scmdb command tree.
//
// Example usage:
//
//	app := NewApp("v1.0.0")
//	app.Writer = &buf
//	err := app.Run(ctx, []string{"scmdb", "--dir", "db", "status"})
func NewApp(version string) *cli.Command {
	return &cli.Command{
		Name:  "scmdb",
		Usage: "Reconcile and execute SQL change scripts",
		Description: `scmdb keeps a log of the change scripts applied to a database schema.
Each sync compares the script directory with the log, stages new scripts
and the rollbacks of removed ones in EXECUTE_ME, and runs them through
SQL*Plus against the owner or user schema.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "the project directory",
				Value:       ".",
				DefaultText: "Current directory",
				Sources:     cli.EnvVars("SCMDB_DIR"),
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "the scmdb config file (yaml or toml)",
				DefaultText: "<dir>/scmdb.yaml",
				Sources:     cli.EnvVars("SCMDB_CONFIG"),
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("SCMDB_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "text or json",
				Sources: cli.EnvVars("SCMDB_LOG_FORMAT"),
			},
		},
		Commands: []*cli.Command{
			NewInitCommand(),
			NewSyncCommand(),
			NewStatusCommand(),
			NewImportCommand(),
			NewExecCommand(),
			NewCheckConnectionCommand(),
		},
	}
}

// Run creates and executes the scmdb CLI application with the given version
// and command-line arguments.
//
// Example usage:
//
//	err := Run(ctx, "v1.0.0", []string{"scmdb", "sync"})
//
//	err := Run(ctx, "v1.0.0", []string{"scmdb", "--dir", "/path/to/project", "status"})
func Run(ctx context.Context, version string, args []string) error {
	return NewApp(version).Run(ctx, args)
}
