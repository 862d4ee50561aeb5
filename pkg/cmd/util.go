package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/config"
	"github.com/pseudomuto/scmdb/pkg/consts"
	"github.com/pseudomuto/scmdb/pkg/executor"
	"github.com/pseudomuto/scmdb/pkg/logging"
	"github.com/pseudomuto/scmdb/pkg/reconcile"
	"github.com/pseudomuto/scmdb/pkg/script"
	"github.com/pseudomuto/scmdb/pkg/scriptlog"
	"github.com/urfave/cli/v3"
)

const timeFormat = "2006-01-02 15:04:05 UTC"

func ownerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "owner",
		Usage:   "owner schema connection string, overrides the config file",
		Sources: cli.EnvVars("SCMDB_OWNER"),
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}
}

func continueOnErrorFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "continue-on-error",
		Usage:   "keep executing scripts after one fails",
		Sources: cli.EnvVars("SCMDB_CONTINUE_ON_ERROR"),
	}
}

// session holds what a command needs after the global flags are applied.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func newSession(cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("log-level") {
		cfg.Logging.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Logging.Format = cmd.String("log-format")
	}
	if cmd.IsSet("owner") {
		cfg.Owner = cmd.String("owner")
	}
	if cmd.IsSet("continue-on-error") {
		cfg.Engine.ContinueOnError = cmd.Bool("continue-on-error")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	logger, err := logging.New(errWriter(cmd), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:    cfg,
		logger: logger.With("run_id", uuid.NewString()),
		out:    writer(cmd),
	}, nil
}

// loadConfig reads the --config file, or <dir>/scmdb.yaml when it exists.
// Without either the defaults are used with the project directory as the
// script directory.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	dir := cmd.String("dir")
	if dir == "" {
		dir = "."
	}

	if path := cmd.String("config"); path != "" {
		return config.LoadConfigFile(path)
	}

	path := filepath.Join(dir, consts.DefaultConfigFile)
	if _, err := os.Stat(path); err == nil {
		return config.LoadConfigFile(path)
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	cfg := config.Default()
	cfg.Resolve(dir)
	return cfg, nil
}

func (s *session) openLog(ctx context.Context) (scriptlog.Store, error) {
	store, err := scriptlog.Open(ctx, s.cfg.ScriptLog())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Opened script log", "driver", s.cfg.Log.Driver, "table", s.cfg.Log.Table)
	return store, nil
}

func (s *session) engine(store scriptlog.Store) *reconcile.Engine {
	return reconcile.New(reconcile.Config{Log: store, Logger: s.logger})
}

func (s *session) executor() (*executor.Executor, error) {
	owner, err := s.cfg.OwnerCredentials()
	if err != nil {
		return nil, err
	}

	return executor.New(executor.Config{
		Owner:                owner,
		UserConnectionString: s.cfg.UserConnectionString(),
		Binary:               s.cfg.Engine.Binary,
		Logger:               s.logger,
	}), nil
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}

	return os.Stderr
}

func printPlan(w io.Writer, plan *reconcile.Plan) {
	if plan.Checkpoint.IsZero() {
		fmt.Fprintln(w, "Script log checkpoint: none (empty log)")
	} else {
		fmt.Fprintf(w, "Script log checkpoint: %s\n", plan.Checkpoint.UTC().Format(timeFormat))
	}
	fmt.Fprintln(w)

	if plan.IsEmpty() {
		fmt.Fprintln(w, "✅ Up to date, nothing to execute")
		return
	}

	printRecords(w, "New scripts", "+", plan.New, true)
	printRecords(w, "Removed scripts", "-", plan.Removed, false)
	printRecords(w, "Rollbacks to execute", "↩", plan.Rollbacks, false)

	staged := plan.ToStage()
	fmt.Fprintf(w, "Execution order (%d):\n", len(staged))
	for i, r := range staged {
		fmt.Fprintf(w, "  %d. %s\n", i+1, r.Name)
	}
}

func printRecords(w io.Writer, title, marker string, records []*script.Record, markRecordOnly bool) {
	fmt.Fprintf(w, "%s (%d):\n", title, len(records))
	for _, r := range records {
		note := ""
		if markRecordOnly && r.IsRollback() {
			note = " (recorded only)"
		}

		fmt.Fprintf(w, "  %s %s%s\n", marker, r.Name, note)
	}
	fmt.Fprintln(w)
}

func printResults(w io.Writer, results []*executor.Result) error {
	failed := 0
	for _, res := range results {
		name := filepath.Base(res.Script)

		switch res.Status {
		case executor.StatusSuccess:
			fmt.Fprintf(w, "✅ %s (%s)\n", name, res.Duration.Round(time.Millisecond))
		case executor.StatusFailed:
			failed++
			if res.Error != nil {
				fmt.Fprintf(w, "❌ %s: %v\n", name, res.Error)
			} else {
				fmt.Fprintf(w, "❌ %s (exit code %d)\n", name, res.ExitCode)
			}
		case executor.StatusSkipped:
			fmt.Fprintf(w, "⏭  %s skipped\n", name)
		}
	}

	if failed > 0 {
		return errors.Errorf("%d of %d scripts failed", failed, len(results))
	}

	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}

	return fmt.Sprintf("%d %ss", n, strings.TrimSuffix(word, "s"))
}
