package docker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultVersion is the ClickHouse image tag used when none is configured.
	DefaultVersion = "25.7"

	// DefaultUsername is the ClickHouse user created in the container.
	DefaultUsername = "scmdb"

	// DefaultPassword is the password of DefaultUsername.
	DefaultPassword = "scmdb"

	httpPort = nat.Port("8123/tcp")
)

var ErrNotRunning = errors.New("container is not running")

type (
	// Options configures the ClickHouse container.
	Options struct {
		// Version is the clickhouse-server image tag (alpine variant)
		Version string

		// Username and Password of the server account
		Username string
		Password string

		// ConfigDir is mounted at /etc/clickhouse-server/config.d when set
		ConfigDir string

		// StartTimeout bounds how long to wait for the HTTP interface
		StartTimeout time.Duration
	}

	// Container is a ClickHouse server running in Docker.
	Container struct {
		opts      Options
		container *clickhouse.ClickHouseContainer
	}
)

// New returns a container for opts, applying defaults for empty fields.
func New(opts Options) *Container {
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.Username == "" {
		opts.Username = DefaultUsername
		opts.Password = DefaultPassword
	}
	if opts.StartTimeout == 0 {
		opts.StartTimeout = 2 * time.Minute
	}

	return &Container{opts: opts}
}

// Image returns the image reference that Start will run.
func (c *Container) Image() string {
	return fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", c.opts.Version)
}

// Start runs the container and waits until the HTTP interface answers.
func (c *Container) Start(ctx context.Context) error {
	if c.container != nil {
		return errors.New("container is already running")
	}

	customizers := []testcontainers.ContainerCustomizer{
		clickhouse.WithUsername(c.opts.Username),
		clickhouse.WithPassword(c.opts.Password),
		testcontainers.WithWaitStrategyAndDeadline(
			c.opts.StartTimeout,
			wait.NewHTTPStrategy("/ping").
				WithPort(httpPort).
				WithStatusCodeMatcher(func(status int) bool { return status == 200 }),
		),
	}

	if c.opts.ConfigDir != "" {
		dir, err := filepath.Abs(c.opts.ConfigDir)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve config dir: %s", c.opts.ConfigDir)
		}

		customizers = append(customizers, testcontainers.WithHostConfigModifier(func(hc *container.HostConfig) {
			hc.Mounts = append(hc.Mounts, mount.Mount{
				Type:     mount.TypeBind,
				Source:   dir,
				Target:   "/etc/clickhouse-server/config.d",
				ReadOnly: true,
			})
		}))
	}

	ch, err := clickhouse.Run(ctx, c.Image(), customizers...)
	if err != nil {
		return errors.Wrap(err, "failed to start ClickHouse container")
	}

	c.container = ch
	return nil
}

// Stop terminates the container. It is a no-op when the container isn't running.
func (c *Container) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil
	}

	err := c.container.Terminate(ctx)
	c.container = nil

	return errors.Wrap(err, "failed to stop ClickHouse container")
}

// DSN returns a clickhouse:// connection string for the native protocol port.
func (c *Container) DSN(ctx context.Context) (string, error) {
	if c.container == nil {
		return "", ErrNotRunning
	}

	dsn, err := c.container.ConnectionString(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get connection string")
	}

	return dsn, nil
}

// IsRunning reports whether Start succeeded and Stop hasn't been called.
func (c *Container) IsRunning() bool {
	return c.container != nil
}
