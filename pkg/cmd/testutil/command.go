package testutil

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/pseudomuto/scmdb/pkg/cmd"
)

// RunApp runs the scmdb application with args (without the program name)
// and returns what it wrote to stdout. Log output is discarded.
func RunApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	return RunAppWithContext(context.Background(), t, args...)
}

// RunAppWithContext is RunApp with a custom context.
func RunAppWithContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := cmd.NewApp("test")
	app.Writer = &out
	app.ErrWriter = io.Discard

	err := app.Run(ctx, append([]string{"scmdb"}, args...))
	return out.String(), err
}
