package credentials

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	// JDBCThinURLPrefix prefixes the host part of a connection string to build
	// the engine specific connect URL.
	JDBCThinURLPrefix = "jdbc:oracle:thin:@"

	// Owner is the owner schema itself.
	Owner SchemaType = ""

	// User is the "_user" companion schema of an owner schema.
	User SchemaType = "_user"

	// Rpt is the "_rpt" reporting companion schema of an owner schema.
	Rpt SchemaType = "_rpt"

	formatsMessage = "You should specify db connection properties using one of following formats:" +
		" <username>/<password>@<host>:<port>:<SID> or <username>/<password>@//<host>:<port>/<service>"
)

var (
	// ErrMalformedCredentials is returned when a connection string or schema
	// credentials string doesn't match the accepted formats. The message names
	// both accepted connection string formats.
	ErrMalformedCredentials = errors.New(formatsMessage)

	connectionPattern = regexp.MustCompile(`^(.+?)/(.+?)@(.+)$`)
	schemaPattern     = regexp.MustCompile(`^(.+?)/([^@]*)$`)
)

type (
	// SchemaType is the postfix appended to an owner schema name to address
	// one of its companion schemas.
	SchemaType string

	// Credentials describes a single schema connection. Values are built with
	// Parse and are not modified afterwards.
	Credentials struct {
		// SchemaName is the schema (user) part of the connection string
		SchemaName string

		// Password is the password part of the connection string
		Password string

		// ConnectionString is the raw string that was parsed
		ConnectionString string

		// URL is the JDBC thin URL derived from the host part
		URL string

		labelOnce sync.Once
		label     string
	}
)

// Parse builds Credentials from a raw "<schema>/<password>@<host-part>" string.
//
// Malformed input returns an error wrapping ErrMalformedCredentials and never a
// partially filled value.
//
// Example:
//
//	creds, err := credentials.Parse("APP/pw@//db1:1521/ORCLPDB")
//	if errors.Is(err, credentials.ErrMalformedCredentials) {
//		fmt.Println(err) // names both accepted formats
//	}
func Parse(raw string) (*Credentials, error) {
	m := connectionPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, ErrMalformedCredentials
	}

	return &Credentials{
		SchemaName:       m[1],
		Password:         m[2],
		ConnectionString: raw,
		URL:              JDBCThinURLPrefix + m[3],
	}, nil
}

// IsValidConnectionString reports whether raw has the "<schema>/<password>@<host-part>" shape.
func IsValidConnectionString(raw string) bool {
	return connectionPattern.MatchString(raw)
}

// IsValidSchemaCredentials reports whether raw has the "<schema>/<password>"
// shape, i.e. credentials without a host part.
func IsValidSchemaCredentials(raw string) bool {
	return schemaPattern.MatchString(raw)
}

// DeriveForVariant returns ownerConn with suffix appended to the schema name.
// The password and host part are kept as is.
//
//	DeriveForVariant("APP/pw@host:1521:ORCL", "_USER") // APP_USER/pw@host:1521:ORCL
func DeriveForVariant(ownerConn, suffix string) string {
	idx := strings.Index(ownerConn, "/")
	if idx < 0 {
		return ownerConn + suffix
	}

	return ownerConn[:idx] + suffix + ownerConn[idx:]
}

// DeriveForNamedSchema replaces the "<schema>/<password>" portion of ownerConn
// with schemaCredentials and keeps the host part of ownerConn.
//
//	DeriveForNamedSchema("APP/pw@host:1521:ORCL", "RPT/x") // RPT/x@host:1521:ORCL
func DeriveForNamedSchema(ownerConn, schemaCredentials string) string {
	idx := strings.Index(ownerConn, "@")
	if idx < 0 {
		return schemaCredentials
	}

	return schemaCredentials + ownerConn[idx:]
}

// ForSchema returns the connection string of the companion schema t.
func (c *Credentials) ForSchema(t SchemaType) string {
	return DeriveForVariant(c.ConnectionString, string(t))
}

// SchemaHostLabel returns a short "schema@host" label for display purposes.
//
// The label is derived from URL by dropping the JDBC prefix, keeping the host
// token up to the first ":" (or "/" when there is no port) and cutting the
// DNS domain at the first ".". It is computed once and cached.
//
//	// schema APP, URL jdbc:oracle:thin:@db1.internal.example:1521:ORCL
//	creds.SchemaHostLabel() // APP@db1
func (c *Credentials) SchemaHostLabel() string {
	c.labelOnce.Do(func() {
		c.label = fmt.Sprintf("%s@%s", c.SchemaName, shortHost(c.URL))
	})

	return c.label
}

// String returns the connection string with the password masked.
func (c *Credentials) String() string {
	return fmt.Sprintf("%s/****@%s", c.SchemaName, strings.TrimPrefix(c.URL, JDBCThinURLPrefix))
}

func shortHost(url string) string {
	// the leading "//" of the service form is kept
	host := strings.TrimPrefix(url, JDBCThinURLPrefix)

	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	} else if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}

	if idx := strings.Index(host, "."); idx >= 0 {
		host = host[:idx]
	}

	return host
}
