package reconcile_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pseudomuto/scmdb/pkg/consts"
	"github.com/pseudomuto/scmdb/pkg/reconcile"
	"github.com/pseudomuto/scmdb/pkg/script"
	"github.com/pseudomuto/scmdb/pkg/scriptlog"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t1.Add(time.Hour)
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) scriptlog.Store {
	t.Helper()

	store, err := scriptlog.Open(context.Background(), scriptlog.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "log.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func writeScript(t *testing.T, dir, name, body string, mtime time.Time) {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), consts.ModeFile))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// seed records the given scripts as applied, as an earlier run would have.
func seed(t *testing.T, store scriptlog.Store, dir string, names ...string) []*script.Record {
	t.Helper()

	records := make([]*script.Record, 0, len(names))
	for _, name := range names {
		r, err := script.Load(discard(), filepath.Join(dir, name))
		require.NoError(t, err)
		records = append(records, r)
	}

	require.NoError(t, store.BatchCreate(context.Background(), records))
	return records
}

func applied(t *testing.T, store scriptlog.Store) []*script.Record {
	t.Helper()

	records, err := store.All(context.Background())
	require.NoError(t, err)
	return records
}

func names(records []*script.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestReconcile_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openStore(t)

	writeScript(t, dir, "001.sql", "CREATE TABLE a (id NUMBER);", t0)
	seed(t, store, dir, "001.sql")
	writeScript(t, dir, "002.sql", "CREATE TABLE b (id NUMBER);", t1)

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	res, err := engine.Reconcile(ctx, dir, applied(t, store))
	require.NoError(t, err)

	require.Equal(t, []string{"002.sql"}, names(res.New))
	require.Empty(t, res.Removed)
	require.Empty(t, res.Superseded)
	require.True(t, res.Checkpoint.Equal(t0))

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(absDir, consts.ExecFolderName, "002.sql")}, res.Staged)

	data, err := os.ReadFile(res.Staged[0])
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE b (id NUMBER);", string(data))

	require.Equal(t, []string{"001.sql", "002.sql"}, names(applied(t, store)))
	require.NotEmpty(t, res.New[0].ID)
}

func TestReconcile_EmptyLog(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t)

	writeScript(t, dir, "001.sql", "select 1 from dual;", t0)
	writeScript(t, dir, "001_rollback.sql", "drop table a;", t1)
	writeScript(t, dir, "readme.txt", "not a script", t1)

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	res, err := engine.Reconcile(context.Background(), dir, nil)
	require.NoError(t, err)

	require.True(t, res.Checkpoint.IsZero())
	require.Equal(t, []string{"001.sql", "001_rollback.sql"}, names(res.New))

	// new rollback scripts are recorded but not staged
	require.Len(t, res.Staged, 1)
	require.Equal(t, "001.sql", filepath.Base(res.Staged[0]))

	logged := applied(t, store)
	require.Equal(t, []string{"001.sql", "001_rollback.sql"}, names(logged))
	require.Equal(t, "drop table a;", logged[1].Text)
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openStore(t)

	writeScript(t, dir, "001.sql", "a", t0)
	writeScript(t, dir, "002.sql", "b", t1)
	writeScript(t, dir, "002_rollback.sql", "c", t1)

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	first, err := engine.Reconcile(ctx, dir, applied(t, store))
	require.NoError(t, err)
	require.Len(t, first.New, 3)

	second, err := engine.Reconcile(ctx, dir, applied(t, store))
	require.NoError(t, err)
	require.Empty(t, second.New)
	require.Empty(t, second.Removed)
	require.Empty(t, second.Staged)
	require.True(t, second.IsEmpty())
}

func TestReconcile_AppliedNameNeverNew(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t)

	writeScript(t, dir, "001.sql", "a", t0)
	writeScript(t, dir, "002.sql", "b", t1)
	seed(t, store, dir, "001.sql", "002.sql")

	// same name, different content, touched after the checkpoint
	writeScript(t, dir, "001.sql", "changed", t2)
	writeScript(t, dir, "002.sql", "changed too", t2)

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	res, err := engine.Reconcile(context.Background(), dir, applied(t, store))
	require.NoError(t, err)

	require.Empty(t, res.New)
	require.Empty(t, res.Removed)
	require.Empty(t, res.Staged)
	require.NoDirExists(t, reconcile.StagingDir(dir))
}

func TestReconcile_RollbacksStagedFirst(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openStore(t)

	writeScript(t, dir, "001.sql", "create table a (id number);", t0)
	writeScript(t, dir, "001_rollback.sql", "drop table a;", t0)
	writeScript(t, dir, "002.sql", "create table b (id number);", t0)
	writeScript(t, dir, "002_rollback.sql", "drop table b;", t0)
	seed(t, store, dir, "001.sql", "001_rollback.sql", "002.sql", "002_rollback.sql")

	// undo both changes and add a new one
	for _, name := range []string{"001.sql", "001_rollback.sql", "002.sql", "002_rollback.sql"} {
		require.NoError(t, os.Remove(filepath.Join(dir, name)))
	}
	writeScript(t, dir, "003.sql", "create table c (id number);", t1)

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	res, err := engine.Reconcile(ctx, dir, applied(t, store))
	require.NoError(t, err)

	require.Equal(t, []string{"001.sql", "001_rollback.sql", "002.sql", "002_rollback.sql"}, names(res.Removed))
	require.Equal(t, []string{"001_rollback.sql", "002_rollback.sql"}, names(res.Rollbacks))
	require.Len(t, res.Superseded, 4)

	require.Len(t, res.Staged, 3)
	require.Equal(t, "001_rollback.sql", filepath.Base(res.Staged[0]))
	require.Equal(t, "002_rollback.sql", filepath.Base(res.Staged[1]))
	require.Equal(t, "003.sql", filepath.Base(res.Staged[2]))

	data, err := os.ReadFile(res.Staged[1])
	require.NoError(t, err)
	require.Equal(t, "drop table b;", string(data))

	require.Equal(t, []string{"003.sql"}, names(applied(t, store)))
}

func TestReconcile_OlderUnloggedScriptIgnored(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t)

	writeScript(t, dir, "002.sql", "b", t1)
	seed(t, store, dir, "002.sql")
	writeScript(t, dir, "001.sql", "a", t0)

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	plan, err := engine.Plan(context.Background(), dir, applied(t, store))
	require.NoError(t, err)
	require.Empty(t, plan.New)
	require.Empty(t, plan.Removed)
}

func TestReconcile_StagingFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openStore(t)

	writeScript(t, dir, "001_rollback.sql", "drop table a;", t0)
	seed(t, store, dir, "001_rollback.sql")
	require.NoError(t, os.Remove(filepath.Join(dir, "001_rollback.sql")))
	writeScript(t, dir, "002.sql", "create table b (id number);", t1)

	// a directory in place of the staged file makes the copy fail
	require.NoError(t, os.MkdirAll(filepath.Join(reconcile.StagingDir(dir), "002.sql"), consts.ModeDir))

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	_, err := engine.Reconcile(ctx, dir, applied(t, store))
	require.ErrorIs(t, err, reconcile.ErrStaging)
	require.ErrorContains(t, err, "002.sql")

	require.NoFileExists(t, filepath.Join(reconcile.StagingDir(dir), "001_rollback.sql"))
	require.Equal(t, []string{"001_rollback.sql"}, names(applied(t, store)))
}

func TestReconcile_StagingFailureRestoresPreviousFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openStore(t)
	staging := reconcile.StagingDir(dir)

	writeScript(t, dir, "001_rollback.sql", "drop table a;", t0)
	seed(t, store, dir, "001_rollback.sql")
	require.NoError(t, os.Remove(filepath.Join(dir, "001_rollback.sql")))
	writeScript(t, dir, "002.sql", "create table b (id number);", t1)

	// left behind by an earlier run
	require.NoError(t, os.MkdirAll(staging, consts.ModeDir))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "001_rollback.sql"), []byte("previous"), consts.ModeFile))
	require.NoError(t, os.MkdirAll(filepath.Join(staging, "002.sql"), consts.ModeDir))

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	_, err := engine.Reconcile(ctx, dir, applied(t, store))
	require.ErrorIs(t, err, reconcile.ErrStaging)

	data, err := os.ReadFile(filepath.Join(staging, "001_rollback.sql"))
	require.NoError(t, err)
	require.Equal(t, "previous", string(data))
}

func TestReconcile_PersistFailureRestoresPreviousFiles(t *testing.T) {
	dir := t.TempDir()
	staging := reconcile.StagingDir(dir)
	writeScript(t, dir, "001.sql", "a", t0)

	require.NoError(t, os.MkdirAll(staging, consts.ModeDir))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "001.sql"), []byte("previous"), consts.ModeFile))

	engine := reconcile.New(reconcile.Config{Log: &failingStore{err: errors.New("boom")}, Logger: discard()})
	_, err := engine.Reconcile(context.Background(), dir, nil)
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(staging, "001.sql"))
	require.NoError(t, err)
	require.Equal(t, "previous", string(data))
}

func TestPlan_DoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t)

	writeScript(t, dir, "001.sql", "a", t0)

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	plan, err := engine.Plan(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"001.sql"}, names(plan.New))
	require.Equal(t, []string{"001.sql"}, names(plan.ToStage()))

	require.NoDirExists(t, reconcile.StagingDir(dir))
	require.Empty(t, applied(t, store))
}

func TestPlan_MissingDir(t *testing.T) {
	engine := reconcile.New(reconcile.Config{Log: openStore(t), Logger: discard()})
	_, err := engine.Plan(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
}

type failingStore struct {
	scriptlog.Store
	err error
}

func (f *failingStore) Newest(context.Context) (*script.Record, error) { return nil, nil }

func (f *failingStore) InTx(context.Context, func(scriptlog.Log) error) error { return f.err }

func TestReconcile_PersistFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "001.sql", "a", t0)

	boom := errors.New("boom")
	engine := reconcile.New(reconcile.Config{Log: &failingStore{err: boom}, Logger: discard()})

	_, err := engine.Reconcile(context.Background(), dir, nil)
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "failed to update script log")
	require.NoFileExists(t, filepath.Join(reconcile.StagingDir(dir), "001.sql"))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := openStore(t)

	writeScript(t, dir, "001.sql", "a", t0)
	writeScript(t, dir, "002_rollback.sql", "b", t1)
	seed(t, store, dir, "001.sql")
	writeScript(t, dir, "003.sql", "c", t0)

	engine := reconcile.New(reconcile.Config{Log: store, Logger: discard()})
	imported, err := engine.Import(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, []string{"002_rollback.sql", "003.sql"}, names(imported))

	require.ElementsMatch(t, []string{"001.sql", "002_rollback.sql", "003.sql"}, names(applied(t, store)))
	require.NoDirExists(t, reconcile.StagingDir(dir))

	again, err := engine.Import(ctx, dir)
	require.NoError(t, err)
	require.Empty(t, again)
}
