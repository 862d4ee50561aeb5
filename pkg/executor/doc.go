// Package executor runs change scripts through the SQL*Plus command line
// client.
//
// Every script is executed through a wrapper script that sets up error
// handling before including the change script:
//
//   - Scripts named *_user.sql (but not *_pkg_user.sql) run against the user
//     schema through sqlplus_exit_code_wrapper.sql, which exits with a non-zero
//     status when the script raises an error.
//   - All other scripts run against the owner schema through
//     compile_invalids_wrapper.sql, which additionally recompiles invalidated
//     objects once the script has completed.
//
// The wrapper is copied next to the script under a unique temporary name for
// the duration of the run and removed afterwards, whatever the outcome.
//
// # Process Output
//
// The combined stdout and stderr of the client is logged line by line at the
// info level with the script name attached. Nothing is buffered, so long
// running scripts report progress as they go.
//
// # Exit Codes
//
// Execute returns the exit code of the client as is. A non-zero exit code is
// not an error: only failing to write the wrapper (ErrWrapperProvision) or to
// start the process is. ExecuteAll turns exit codes into Result statuses and
// decides whether to continue after a failure.
//
// # Usage Example
//
//	owner, err := credentials.Parse("APP/secret@db1:1521:ORCL")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	exec := executor.New(executor.Config{Owner: owner})
//	for _, res := range exec.ExecuteAll(ctx, staged, false) {
//		switch res.Status {
//		case executor.StatusSuccess:
//			fmt.Printf("✓ %s completed in %v\n", res.Script, res.Duration)
//		case executor.StatusFailed:
//			fmt.Printf("✗ %s failed (exit code %d)\n", res.Script, res.ExitCode)
//		case executor.StatusSkipped:
//			fmt.Printf("- %s skipped\n", res.Script)
//		}
//	}
package executor
