package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// NewExecCommand creates the exec command which runs the given script files
// through SQL*Plus without consulting or updating the script log.
//
// Example usage:
//
//	scmdb exec db/scripts/EXECUTE_ME/042_add_index.sql
//	scmdb exec --continue-on-error 001_user.sql 002.sql
func NewExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Execute script files",
		ArgsUsage: "<file>...",
		Description: `Run each file with SQL*Plus in the given order. Files named *_user.sql run
against the user schema, all others against the owner schema. The script log
is not updated.`,
		Flags: []cli.Flag{
			ownerFlag(),
			continueOnErrorFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				return errors.New("at least one script file is required")
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			exec, err := s.executor()
			if err != nil {
				return err
			}

			return printResults(s.out, exec.ExecuteAll(ctx, files, s.cfg.Engine.ContinueOnError))
		},
	}
}
