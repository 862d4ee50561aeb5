package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/pseudomuto/scmdb/pkg/consts"
	"github.com/stretchr/testify/require"
)

// ProjectFixture is an isolated project directory with a scripts folder.
type ProjectFixture struct {
	Dir string
	t   *testing.T
}

// TestProject creates a temp project using "scripts" as the script directory.
func TestProject(t *testing.T) *ProjectFixture {
	t.Helper()

	p := &ProjectFixture{Dir: t.TempDir(), t: t}
	require.NoError(t, os.MkdirAll(p.ScriptsDir(), consts.ModeDir))

	return p.WithConfig("scripts_dir: scripts\n")
}

// WithConfig replaces scmdb.yaml with the given content.
func (p *ProjectFixture) WithConfig(yaml string) *ProjectFixture {
	p.t.Helper()

	err := os.WriteFile(p.ConfigPath(), []byte(yaml), consts.ModeFile)
	require.NoError(p.t, err, "Failed to write config")

	return p
}

// WithScript writes a script and sets its modification time.
func (p *ProjectFixture) WithScript(name, sql string, mtime time.Time) *ProjectFixture {
	p.t.Helper()

	path := filepath.Join(p.ScriptsDir(), name)
	require.NoError(p.t, os.WriteFile(path, []byte(sql), consts.ModeFile), "Failed to write script: %s", name)
	require.NoError(p.t, os.Chtimes(path, mtime, mtime))

	return p
}

// RemoveScript deletes a script from the script directory.
func (p *ProjectFixture) RemoveScript(name string) *ProjectFixture {
	p.t.Helper()

	require.NoError(p.t, os.Remove(filepath.Join(p.ScriptsDir(), name)))
	return p
}

// ConfigPath returns the path to scmdb.yaml.
func (p *ProjectFixture) ConfigPath() string {
	return filepath.Join(p.Dir, consts.DefaultConfigFile)
}

// ScriptsDir returns the script directory.
func (p *ProjectFixture) ScriptsDir() string {
	return filepath.Join(p.Dir, "scripts")
}

// StagingDir returns the EXECUTE_ME folder of the script directory.
func (p *ProjectFixture) StagingDir() string {
	return filepath.Join(p.ScriptsDir(), consts.ExecFolderName)
}

// FakeEngine writes a shell script standing in for sqlplus. It prints its
// arguments and exits with the given code.
func (p *ProjectFixture) FakeEngine(exitCode int) string {
	p.t.Helper()

	path := filepath.Join(p.Dir, "fake-sqlplus")
	body := "#!/bin/sh\necho \"sqlplus $1 $2 $(basename \"$5\")\"\nexit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(p.t, os.WriteFile(path, []byte(body), consts.ModeDir))

	return path
}
