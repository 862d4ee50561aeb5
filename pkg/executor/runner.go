package executor

import (
	"context"
	"io"
	"os/exec"

	"github.com/pkg/errors"
)

type (
	// Runner starts a process and waits for it to exit.
	//
	// Run executes name with args in dir, writing the combined output to out.
	// It returns the exit code of the process and an error only when the
	// process could not be started or waited for.
	Runner interface {
		Run(ctx context.Context, dir, name string, args []string, out io.Writer) (int, error)
	}

	// ProcessRunner runs commands as child processes.
	ProcessRunner struct{}
)

// Run implements Runner using os/exec. Cancelling ctx kills the process.
func (ProcessRunner) Run(ctx context.Context, dir, name string, args []string, out io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return -1, errors.Wrapf(err, "failed to start %s", name)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}

		return -1, errors.Wrapf(err, "failed to wait for %s", name)
	}

	return 0, nil
}
