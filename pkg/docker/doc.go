// Package docker starts throwaway ClickHouse servers for exercising the
// ClickHouse script log backend.
//
// Containers are managed through testcontainers-go. They listen on random host
// ports and are removed when Stop is called.
//
//	c := docker.New(docker.Options{Version: "25.7"})
//	if err := c.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer c.Stop(ctx)
//
//	dsn, err := c.DSN(ctx)
package docker
