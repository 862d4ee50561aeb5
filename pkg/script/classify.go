package script

import (
	"path/filepath"
	"strings"

	"github.com/pseudomuto/scmdb/pkg/consts"
)

const (
	// OwnerTarget scripts run against the owner schema.
	OwnerTarget Target = "owner"

	// UserTarget scripts run against the "_user" companion schema.
	UserTarget Target = "user"
)

type (
	// Target is the schema a script is executed against.
	Target string

	// Class is the result of classifying a script file name.
	Class struct {
		Type   Type
		Target Target
	}
)

// Classify derives the Type and Target of a script from its file name.
//
// A script is a rollback script when its base name ends with "rollback". It
// targets the user schema when its base name ends with "_user" but not with
// "pkg_user": package scripts named *_pkg_user.sql still belong to the owner.
//
//	Classify("FOO_user.sql")     // {COMMIT, user}
//	Classify("FOO_pkg_user.sql") // {COMMIT, owner}
//	Classify("FOO_rollback.sql") // {ROLLBACK, owner}
func Classify(fileName string) Class {
	base := BaseName(fileName)

	c := Class{Type: Commit, Target: OwnerTarget}
	if strings.HasSuffix(base, consts.RollbackSuffix) {
		c.Type = Rollback
	}

	if strings.HasSuffix(base, "_user") && !strings.HasSuffix(base, "pkg_user") {
		c.Target = UserTarget
	}

	return c
}

// BaseName returns the file name without directory and extension.
func BaseName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
