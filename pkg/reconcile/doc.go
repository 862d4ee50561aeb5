// Package reconcile compares a directory of change scripts with the script
// log and works out what has to run.
//
// A reconciliation run has three phases:
//
//  1. Plan: scripts modified at or after the newest log entry that aren't in
//     the log yet are new. Logged scripts whose files are gone are removed,
//     and the removed rollback scripts must be replayed.
//  2. Stage: the text of every removed rollback script is written to the
//     EXECUTE_ME folder, followed by a copy of every new commit script.
//  3. Persist: removed records are deleted and new records inserted within a
//     single script log transaction.
//
// Identity is the script file name. A script whose content changes after it
// was applied is not staged again.
//
// Example:
//
//	engine := reconcile.New(reconcile.Config{Log: store, Logger: logger})
//
//	applied, err := store.All(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := engine.Reconcile(ctx, "db/scripts", applied)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, path := range res.Staged {
//		fmt.Println(path)
//	}
package reconcile
