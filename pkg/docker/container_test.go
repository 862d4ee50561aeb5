package docker_test

import (
	"context"
	"testing"

	"github.com/pseudomuto/scmdb/pkg/docker"
	"github.com/stretchr/testify/require"
)

func TestContainer_Image(t *testing.T) {
	require.Equal(t, "clickhouse/clickhouse-server:25.7-alpine", docker.New(docker.Options{}).Image())
	require.Equal(t, "clickhouse/clickhouse-server:24.8-alpine", docker.New(docker.Options{Version: "24.8"}).Image())
}

func TestContainer_NotRunning(t *testing.T) {
	c := docker.New(docker.Options{})
	require.False(t, c.IsRunning())

	_, err := c.DSN(context.Background())
	require.ErrorIs(t, err, docker.ErrNotRunning)

	require.NoError(t, c.Stop(context.Background()))
}
