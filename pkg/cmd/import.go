package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewImportCommand creates the import command which records every script in
// the script directory as executed without running it.
//
// Example usage:
//
//	scmdb import
func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Record all scripts as executed without running them",
		Description: `Baseline a database that already has the scripts applied. Every script in
the script directory that is not in the script log yet is recorded as executed.
Nothing is staged or executed.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			store, err := s.openLog(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := s.engine(store).Import(ctx, s.cfg.ScriptsDir)
			if err != nil {
				return err
			}

			for _, r := range records {
				fmt.Fprintf(s.out, "  + %s\n", r.Name)
			}
			fmt.Fprintf(s.out, "Imported %s\n", plural(len(records), "script"))
			return nil
		},
	}
}
