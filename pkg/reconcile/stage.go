package reconcile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/consts"
)

// ErrStaging is returned when a script can't be written to the staging folder.
var ErrStaging = errors.New("failed to stage scripts")

// StagingDir returns the staging folder of a script directory.
func StagingDir(dir string) string {
	return filepath.Join(dir, consts.ExecFolderName)
}

// stagedFile is a file written to the staging folder. prev holds the content
// it replaced so a failed run can put it back.
type stagedFile struct {
	path    string
	prev    []byte
	existed bool
}

func (e *Engine) stage(dir string, plan *Plan) ([]stagedFile, error) {
	records := plan.ToStage()
	if len(records) == 0 {
		return nil, nil
	}

	target, err := filepath.Abs(StagingDir(dir))
	if err != nil {
		return nil, errors.Wrapf(ErrStaging, "%s: %v", dir, err)
	}

	if err := os.MkdirAll(target, consts.ModeDir); err != nil {
		return nil, errors.Wrapf(ErrStaging, "failed to create %s: %v", target, err)
	}

	staged := make([]stagedFile, 0, len(records))
	for _, r := range records {
		file := stagedFile{path: filepath.Join(target, r.Name)}
		if prev, err := os.ReadFile(file.path); err == nil {
			file.prev = prev
			file.existed = true
		}

		var err error
		if r.IsRollback() {
			err = os.WriteFile(file.path, []byte(r.Text), consts.ModeFile)
		} else {
			err = copyFile(filepath.Join(dir, r.Name), file.path)
		}

		if err != nil {
			e.unstage(staged)
			return nil, errors.Wrapf(ErrStaging, "%s: %v", r.Name, err)
		}

		e.logger.Debug("Staged script", "name", r.Name, "type", r.Type, "replaced", file.existed)
		staged = append(staged, file)
	}

	return staged, nil
}

// unstage removes the files written by stage, restoring those that already
// existed in the staging folder.
func (e *Engine) unstage(files []stagedFile) {
	for _, f := range files {
		var err error
		if f.existed {
			err = os.WriteFile(f.path, f.prev, consts.ModeFile)
		} else if err = os.Remove(f.path); os.IsNotExist(err) {
			err = nil
		}

		if err != nil {
			e.logger.Warn("Can't restore staging folder", "path", f.path, "err", err)
		}
	}
}

func stagedPaths(files []stagedFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}

	return paths
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, consts.ModeFile)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
