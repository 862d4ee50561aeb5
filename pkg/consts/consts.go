package consts

import "os"

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// ExecFolderName is the subfolder of a script directory that receives staged scripts
	ExecFolderName = "EXECUTE_ME"

	// ScriptExt is the extension of change scripts
	ScriptExt = ".sql"

	// RollbackSuffix marks rollback scripts (e.g. 042_add_index_rollback.sql)
	RollbackSuffix = "rollback"

	// DefaultConfigFile is the configuration file looked up in the project directory
	DefaultConfigFile = "scmdb.yaml"

	// DefaultEngineBinary is the SQL command-line engine used to run scripts
	DefaultEngineBinary = "sqlplus"

	// DefaultLogDriver is the script log backend used when none is configured
	DefaultLogDriver = "sqlite"

	// DefaultLogDSN is the sqlite database used when no DSN is configured
	DefaultLogDSN = "scmdb.db"

	// DefaultLogTable is the table holding the script log
	DefaultLogTable = "scmdb_scripts"

	// DefaultLogLevel is the slog level used when none is configured
	DefaultLogLevel = "info"

	// DefaultLogFormat is the slog handler used when none is configured
	DefaultLogFormat = "text"
)
