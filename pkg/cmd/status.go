package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// NewStatusCommand creates the status command for showing what a sync would do.
//
// Example usage:
//
//	scmdb status
//	scmdb --dir db status
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show pending changes without staging or recording anything",
		Description: `Compare the script directory with the script log and print:
- new scripts that sync would record (and stage unless they are rollbacks)
- logged scripts whose files have been removed
- the rollback scripts that would be replayed for them
- the resulting execution order`,
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	return s.status(ctx)
}

func (s *session) status(ctx context.Context) error {
	store, err := s.openLog(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	applied, err := store.All(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load script log")
	}

	plan, err := s.engine(store).Plan(ctx, s.cfg.ScriptsDir, applied)
	if err != nil {
		return err
	}

	printPlan(s.out, plan)
	return nil
}
