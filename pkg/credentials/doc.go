// Package credentials parses Oracle-style connection strings and derives
// connection strings for the companion schemas of an owner schema.
//
// Connection strings are kept as opaque strings wherever possible because the
// SQL engine consumes the raw form directly. Two shapes are accepted:
//
//	<username>/<password>@<host>:<port>:<SID>
//	<username>/<password>@//<host>:<port>/<service>
//
// The first "/" separates the schema from the password and the first "@"
// after it separates the password from the host part, so passwords containing
// "/" or "@" are not supported.
//
// Example:
//
//	owner, err := credentials.Parse("APP/secret@db1.internal.example:1521:ORCL")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(owner.SchemaHostLabel())          // APP@db1
//	fmt.Println(owner.ForSchema(credentials.User)) // APP_user/secret@db1.internal.example:1521:ORCL
package credentials
