package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/scmdb/pkg/config"
	"github.com/pseudomuto/scmdb/pkg/consts"
	"github.com/pseudomuto/scmdb/pkg/credentials"
	"github.com/pseudomuto/scmdb/pkg/project"
	"github.com/stretchr/testify/require"
)

func TestProjectInitialize(t *testing.T) {
	t.Run("creates all missing directories and files", func(t *testing.T) {
		dir := t.TempDir()

		created, err := project.New(dir).Initialize(project.InitOptions{})
		require.NoError(t, err)
		require.Equal(t, []string{"scmdb.yaml", "scripts", "scripts/.gitignore"}, created)

		require.DirExists(t, filepath.Join(dir, "scripts"))
		require.FileExists(t, filepath.Join(dir, "scripts", ".gitignore"))

		cfg, err := config.LoadConfigFile(filepath.Join(dir, "scmdb.yaml"))
		require.NoError(t, err)
		require.Equal(t, filepath.Join(dir, "scripts"), cfg.ScriptsDir)
		require.Empty(t, cfg.Owner)
		require.Equal(t, "sqlite", cfg.Log.Driver)
		require.NoError(t, cfg.Validate())

		data, err := os.ReadFile(filepath.Join(dir, "scmdb.yaml"))
		require.NoError(t, err)
		require.Contains(t, string(data), "# owner: APP/secret@db1.example.com:1521:ORCL")
	})

	t.Run("preserves existing files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scmdb.yaml"), []byte("scripts_dir: sql\n"), consts.ModeFile))

		created, err := project.New(dir).Initialize(project.InitOptions{Owner: "APP/pw@db1:1521:ORCL"})
		require.NoError(t, err)
		require.Equal(t, []string{"scripts", "scripts/.gitignore"}, created)

		data, err := os.ReadFile(filepath.Join(dir, "scmdb.yaml"))
		require.NoError(t, err)
		require.Equal(t, "scripts_dir: sql\n", string(data))

		created, err = project.New(dir).Initialize(project.InitOptions{})
		require.NoError(t, err)
		require.Empty(t, created)
	})

	t.Run("writes options", func(t *testing.T) {
		dir := t.TempDir()

		_, err := project.New(dir).Initialize(project.InitOptions{
			Owner:     "APP/pw@db1:1521:ORCL",
			LogDriver: "postgres",
			LogDSN:    "postgres://scmdb@localhost/scmdb",
		})
		require.NoError(t, err)

		cfg, err := config.LoadConfigFile(filepath.Join(dir, "scmdb.yaml"))
		require.NoError(t, err)
		require.Equal(t, "APP/pw@db1:1521:ORCL", cfg.Owner)
		require.Equal(t, "postgres", cfg.Log.Driver)
		require.Equal(t, "postgres://scmdb@localhost/scmdb", cfg.Log.DSN)
		require.Equal(t, "scmdb_scripts", cfg.Log.Table)
		require.Equal(t, "sqlplus", cfg.Engine.Binary)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := project.New(filepath.Join(t.TempDir(), "missing")).Initialize(project.InitOptions{})
		require.ErrorContains(t, err, "failed to stat dir")

		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, consts.ModeFile))
		_, err = project.New(file).Initialize(project.InitOptions{})
		require.ErrorContains(t, err, "is not a directory")

		_, err = project.New(t.TempDir()).Initialize(project.InitOptions{Owner: "bad-string"})
		require.ErrorIs(t, err, credentials.ErrMalformedCredentials)
	})
}
