package cmd

import (
	"context"
	"fmt"

	"github.com/pseudomuto/scmdb/pkg/project"
	"github.com/urfave/cli/v3"
)

// NewInitCommand creates the init command which scaffolds a project in the
// directory given by --dir.
//
// Example usage:
//
//	scmdb init
//	scmdb --dir db init --owner APP/secret@db1:1521:ORCL
//	scmdb init --log-driver postgres --log-dsn postgres://scmdb@localhost/scmdb
func NewInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create scmdb.yaml and the script directory",
		Description: `Initialize an scmdb project. Existing files are left untouched, so init can
be run in a directory that already contains change scripts.`,
		Flags: []cli.Flag{
			ownerFlag(),
			&cli.StringFlag{
				Name:  "log-driver",
				Usage: "script log backend (sqlite, postgres, mysql or clickhouse)",
			},
			&cli.StringFlag{
				Name:  "log-dsn",
				Usage: "script log data source name",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			proj := project.New(cmd.String("dir"))
			created, err := proj.Initialize(project.InitOptions{
				Owner:     cmd.String("owner"),
				LogDriver: cmd.String("log-driver"),
				LogDSN:    cmd.String("log-dsn"),
			})
			if err != nil {
				return err
			}

			w := writer(cmd)
			for _, path := range created {
				fmt.Fprintf(w, "  + %s\n", path)
			}
			fmt.Fprintf(w, "Initialized scmdb project in %s\n", proj.Root())
			return nil
		},
	}
}
