package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// NewSyncCommand creates the sync command which reconciles the script
// directory with the script log and executes the staged scripts.
//
// Command flags:
//   - --owner: owner connection string (overrides the config file)
//   - --continue-on-error: keep executing after a failed script
//   - --dry-run: print the plan without staging, recording or executing
//
// Example usage:
//
//	scmdb sync
//	scmdb sync --owner APP/secret@db1:1521:ORCL --continue-on-error
//	scmdb sync --dry-run
func NewSyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Stage and execute new scripts and the rollbacks of removed ones",
		Description: `Reconcile the script directory with the script log:

1. Scripts modified at or after the newest logged script that are not logged
   yet are recorded as new.
2. Logged scripts whose files are gone are removed from the log. The text of
   removed rollback scripts is written to EXECUTE_ME.
3. New commit scripts are copied to EXECUTE_ME.
4. Staged scripts are executed with SQL*Plus, rollbacks first.

Scripts named *_user.sql run against the user schema, everything else against
the owner schema.`,
		Flags: []cli.Flag{
			ownerFlag(),
			continueOnErrorFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the plan without changing anything",
			},
		},
		Action: runSync,
	}
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("dry-run") {
		return s.status(ctx)
	}

	// fail before touching the log when scripts can't be executed
	exec, err := s.executor()
	if err != nil {
		return err
	}

	store, err := s.openLog(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	applied, err := store.All(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load script log")
	}

	res, err := s.engine(store).Reconcile(ctx, s.cfg.ScriptsDir, applied)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Recorded %s, removed %s\n",
		plural(len(res.New), "script"),
		plural(len(res.Removed), "script"),
	)

	if len(res.Staged) == 0 {
		fmt.Fprintln(s.out, "✅ Nothing to execute")
		return nil
	}

	fmt.Fprintf(s.out, "Executing %s\n", plural(len(res.Staged), "script"))
	return printResults(s.out, exec.ExecuteAll(ctx, res.Staged, s.cfg.Engine.ContinueOnError))
}
