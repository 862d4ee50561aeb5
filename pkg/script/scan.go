package script

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/consts"
)

// Filter selects which directory entries Scan turns into records.
type Filter func(info fs.FileInfo) bool

// All accepts every script file.
func All(fs.FileInfo) bool { return true }

// Scan builds records for the *.sql files directly inside dir that are
// accepted by filter. Sub directories (including the staging folder) are not
// descended into. Records are returned sorted by name.
//
// Hashing and rollback text failures are logged and leave the corresponding
// field empty; only failing to list dir is an error.
//
// Example:
//
//	records, err := script.Scan(logger, "db/scripts", script.All)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, r := range records {
//		fmt.Printf("%s %s %s\n", r.Name, r.Type, r.FileHash)
//	}
func Scan(logger *slog.Logger, dir string, filter Filter) ([]*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read script directory: %s", dir)
	}

	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), consts.ScriptExt) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed between listing and stat
			logger.Warn("Can't stat script", "name", entry.Name(), "err", err)
			continue
		}

		if !info.Mode().IsRegular() || !filter(info) {
			continue
		}

		records = append(records, fromFile(logger, filepath.Join(dir, entry.Name()), info))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})

	return records, nil
}

// Load builds a record for a single script file.
func Load(logger *slog.Logger, path string) (*Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat script: %s", path)
	}

	return fromFile(logger, path, info), nil
}

// FileHash returns the SHA-1 hex digest of the file at path.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha1.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func fromFile(logger *slog.Logger, path string, info fs.FileInfo) *Record {
	r := &Record{
		Name:      info.Name(),
		Timestamp: info.ModTime(),
		Type:      Classify(info.Name()).Type,
		Status:    Executed,
	}

	hash, err := FileHash(path)
	if err != nil {
		logger.Warn("Can't generate hash", "name", r.Name, "err", err)
	} else {
		r.FileHash = hash
	}

	if r.IsRollback() {
		text, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Can't read rollback script", "name", r.Name, "err", err)
		} else {
			r.Text = string(text)
		}
	}

	return r
}
