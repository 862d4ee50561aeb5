package testutil

import (
	"context"
	"os/exec"
	"testing"

	"github.com/pseudomuto/scmdb/pkg/docker"
	"github.com/stretchr/testify/require"
)

// SkipIfNoDocker skips the test in short mode or when Docker is not available.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	if err := exec.CommandContext(t.Context(), "docker", "ps").Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}

// StartClickHouseContainer starts a ClickHouse server that is stopped when the
// test finishes and returns its DSN.
func StartClickHouseContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	c := docker.New(docker.Options{})
	require.NoError(t, c.Start(ctx), "Failed to start ClickHouse container")
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	dsn, err := c.DSN(ctx)
	require.NoError(t, err)

	return dsn
}
