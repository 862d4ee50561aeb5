package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/credentials"
	"github.com/urfave/cli/v3"
)

// NewCheckConnectionCommand creates the check-connection command which
// validates a connection string and prints the schema and host it refers to.
//
// Example usage:
//
//	scmdb check-connection APP/secret@db1.example.com:1521:ORCL
//	# APP@db1
func NewCheckConnectionCommand() *cli.Command {
	return &cli.Command{
		Name:      "check-connection",
		Usage:     "Validate a connection string",
		ArgsUsage: "<connection>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("exactly one connection string is required")
			}

			creds, err := credentials.Parse(cmd.Args().First())
			if err != nil {
				return err
			}

			w := writer(cmd)
			fmt.Fprintln(w, creds.SchemaHostLabel())
			fmt.Fprintf(w, "user schema: %s\n", schemaName(creds.ForSchema(credentials.User)))
			return nil
		},
	}
}

func schemaName(conn string) string {
	creds, err := credentials.Parse(conn)
	if err != nil {
		return conn
	}

	return creds.SchemaName
}
