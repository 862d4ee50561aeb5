package script

import "time"

const (
	// Commit scripts move the schema forward. Only their metadata is kept.
	Commit Type = "COMMIT"

	// Rollback scripts undo a commit script. Their text is kept in the log.
	Rollback Type = "ROLLBACK"

	// Executed marks a script that has been applied (or baselined).
	Executed Status = "EXECUTED"

	// Pending marks a script that has been recorded but not applied yet.
	Pending Status = "PENDING"
)

type (
	// Type classifies a script as a commit or rollback script.
	Type string

	// Status is the lifecycle state of a recorded script.
	Status string

	// Record describes a single change script as scanned from disk or as
	// stored in the script log.
	Record struct {
		// ID is assigned by the script log when the record is persisted
		ID string

		// Name is the file name of the script, unique within a directory
		Name string

		// FileHash is the SHA-1 hex digest of the file, empty if hashing failed
		FileHash string

		// Timestamp is the modification time of the file when it was scanned
		Timestamp time.Time

		// Type is derived from the file name
		Type Type

		// Status is the lifecycle state of the script
		Status Status

		// Text holds the full script body for rollback scripts
		Text string
	}

	// NameSet is a set of script names used for membership checks.
	NameSet map[string]struct{}
)

// IsRollback reports whether r is a rollback script.
func (r *Record) IsRollback() bool {
	return r.Type == Rollback
}

// Names returns the set of names of the given records.
func Names(records []*Record) NameSet {
	set := make(NameSet, len(records))
	for _, r := range records {
		set.Add(r.Name)
	}

	return set
}

// Add inserts name into the set.
func (s NameSet) Add(name string) {
	s[name] = struct{}{}
}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Newest returns the record with the latest Timestamp, or nil when records is
// empty. Ties are broken by name so the result is deterministic.
func Newest(records []*Record) *Record {
	var newest *Record
	for _, r := range records {
		if newest == nil ||
			r.Timestamp.After(newest.Timestamp) ||
			(r.Timestamp.Equal(newest.Timestamp) && r.Name > newest.Name) {
			newest = r
		}
	}

	return newest
}
