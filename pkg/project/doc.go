// Package project scaffolds new scmdb projects.
//
// Initialize creates the configuration file and the script directory in an
// existing directory. It is idempotent: existing files are never overwritten,
// so it is safe to run in a directory that already holds scripts.
//
// Example:
//
//	proj := project.New("/path/to/db")
//	if err := proj.Initialize(project.InitOptions{Owner: "APP/secret@db1:1521:ORCL"}); err != nil {
//		log.Fatal(err)
//	}
package project
