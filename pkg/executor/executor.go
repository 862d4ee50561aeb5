package executor

import (
	"bufio"
	"context"
	"embed"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/consts"
	"github.com/pseudomuto/scmdb/pkg/credentials"
	"github.com/pseudomuto/scmdb/pkg/script"
)

const (
	// ExitCodeWrapper is the wrapper used for user schema scripts.
	ExitCodeWrapper = "sqlplus_exit_code_wrapper.sql"

	// CompileInvalidsWrapper is the wrapper used for owner schema scripts.
	CompileInvalidsWrapper = "compile_invalids_wrapper.sql"

	maxLineSize = 1024 * 1024
)

// ErrWrapperProvision is returned when the wrapper can't be written next to
// the script. The script is not executed.
var ErrWrapperProvision = errors.New("failed to provision wrapper script")

//go:embed wrappers/*.sql
var wrappers embed.FS

type (
	// Config contains configuration options for creating a new Executor.
	Config struct {
		// Owner is the connection of the owner schema
		Owner *credentials.Credentials

		// UserConnectionString is used for user schema scripts. Defaults to the
		// owner connection with the "_user" suffix appended to the schema name.
		UserConnectionString string

		// Binary is the SQL*Plus executable, consts.DefaultEngineBinary by default
		Binary string

		// Runner starts the client, ProcessRunner by default
		Runner Runner

		// Logger receives the client output, slog.Default() when nil
		Logger *slog.Logger
	}

	// Executor runs change scripts one at a time.
	Executor struct {
		owner    *credentials.Credentials
		userConn string
		binary   string
		runner   Runner
		logger   *slog.Logger
	}

	// Result contains the outcome of executing a single script.
	Result struct {
		// Script is the path of the executed script
		Script string

		// Status indicates the outcome of the execution
		Status Status

		// ExitCode of the client, -1 when it didn't run
		ExitCode int

		// Duration of the run
		Duration time.Duration

		// Error is set when the client could not be started
		Error error
	}

	// Status represents the outcome of a script execution.
	Status string
)

const (
	// StatusSuccess indicates the client exited with code 0
	StatusSuccess Status = "success"

	// StatusFailed indicates a non-zero exit code or a failure to run the client
	StatusFailed Status = "failed"

	// StatusSkipped indicates the script wasn't run because an earlier one failed
	StatusSkipped Status = "skipped"
)

// New creates an Executor for the given owner connection.
func New(cfg Config) *Executor {
	e := &Executor{
		owner:    cfg.Owner,
		userConn: cfg.UserConnectionString,
		binary:   cfg.Binary,
		runner:   cfg.Runner,
		logger:   cfg.Logger,
	}

	if e.userConn == "" {
		e.userConn = cfg.Owner.ForSchema(credentials.User)
	}
	if e.binary == "" {
		e.binary = consts.DefaultEngineBinary
	}
	if e.runner == nil {
		e.runner = ProcessRunner{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Wrapper returns the name of the wrapper used for a script of the given class.
func Wrapper(class script.Class) string {
	if class.Target == script.UserTarget {
		return ExitCodeWrapper
	}

	return CompileInvalidsWrapper
}

// ConnectionFor returns the connection string used for a script of the given class.
func (e *Executor) ConnectionFor(class script.Class) string {
	if class.Target == script.UserTarget {
		return e.userConn
	}

	return e.owner.ConnectionString
}

// Execute runs a single script and returns the client's exit code.
//
// The client is started in the script's directory as
//
//	sqlplus -L -S <connection> @<wrapper> <script>
//
// A non-zero exit code is returned as is with a nil error.
func (e *Executor) Execute(ctx context.Context, scriptFile string) (int, error) {
	path, err := filepath.Abs(scriptFile)
	if err != nil {
		return -1, errors.Wrapf(err, "failed to resolve script path: %s", scriptFile)
	}

	name := filepath.Base(path)
	dir := filepath.Dir(path)
	class := script.Classify(name)

	wrapper, err := provisionWrapper(dir, Wrapper(class))
	if err != nil {
		return -1, err
	}
	defer func() {
		if err := os.Remove(wrapper); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("Can't remove wrapper script", "path", wrapper, "err", err)
		}
	}()

	conn := e.ConnectionFor(class)
	e.logger.Info("Executing script",
		"script", name,
		"target", class.Target,
		"schema", schemaLabel(conn),
	)

	args := []string{"-L", "-S", conn, "@" + wrapper, path}

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.pump(pr, name)
	}()

	code, err := e.runner.Run(ctx, dir, e.binary, args, pw)
	_ = pw.Close()
	<-done

	if err != nil {
		return code, err
	}

	e.logger.Info("Script finished", "script", name, "exit_code", code)
	return code, nil
}

// ExecuteAll runs files in order. When continueOnError is false execution
// stops at the first failure and the remaining files are reported as skipped.
// Otherwise every file is run.
func (e *Executor) ExecuteAll(ctx context.Context, files []string, continueOnError bool) []*Result {
	results := make([]*Result, 0, len(files))

	failed := false
	for _, file := range files {
		if failed && !continueOnError {
			results = append(results, &Result{Script: file, Status: StatusSkipped, ExitCode: -1})
			continue
		}

		start := time.Now()
		code, err := e.Execute(ctx, file)
		res := &Result{
			Script:   file,
			Status:   StatusSuccess,
			ExitCode: code,
			Duration: time.Since(start),
			Error:    err,
		}

		if err != nil || code != 0 {
			res.Status = StatusFailed
			failed = true
		}

		results = append(results, res)
	}

	return results
}

func (e *Executor) pump(r io.Reader, name string) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		e.logger.Info(sc.Text(), "script", name)
	}

	if err := sc.Err(); err != nil {
		e.logger.Warn("Can't read script output", "script", name, "err", err)
	}

	// keep the writer from blocking if scanning stopped early
	_, _ = io.Copy(io.Discard, r)
}

func provisionWrapper(dir, name string) (string, error) {
	data, err := wrappers.ReadFile("wrappers/" + name)
	if err != nil {
		return "", errors.Wrapf(ErrWrapperProvision, "%s: %v", name, err)
	}

	f, err := os.CreateTemp(dir, "scmdb_wrapper_*"+consts.ScriptExt)
	if err != nil {
		return "", errors.Wrapf(ErrWrapperProvision, "%s: %v", name, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrapf(ErrWrapperProvision, "%s: %v", name, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrapf(ErrWrapperProvision, "%s: %v", name, err)
	}

	return f.Name(), nil
}

func schemaLabel(conn string) string {
	creds, err := credentials.Parse(conn)
	if err != nil {
		return "unknown"
	}

	return creds.SchemaHostLabel()
}
