package reconcile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/script"
	"github.com/pseudomuto/scmdb/pkg/scriptlog"
)

type (
	// Config holds the collaborators of an Engine.
	Config struct {
		// Log is the script log reconciled against
		Log scriptlog.Store

		// Logger receives progress and warnings, slog.Default() when nil
		Logger *slog.Logger
	}

	// Engine reconciles script directories with the script log.
	Engine struct {
		log    scriptlog.Store
		logger *slog.Logger
	}

	// Plan is the difference between a script directory and the applied records.
	Plan struct {
		// Checkpoint is the timestamp of the newest logged script, zero when the log is empty
		Checkpoint time.Time

		// New holds scanned scripts at or after Checkpoint that aren't logged yet
		New []*script.Record

		// Removed holds applied records whose script file no longer exists
		Removed []*script.Record

		// Rollbacks holds the rollback scripts among Removed, earliest first
		Rollbacks []*script.Record

		// Superseded holds the IDs of Removed
		Superseded []string
	}

	// Result describes a completed reconciliation.
	Result struct {
		*Plan

		// Staged holds the absolute paths of the files written to the staging
		// folder, rollbacks first
		Staged []string
	}
)

// New creates an Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{log: cfg.Log, logger: logger}
}

// IsEmpty reports whether the plan has nothing to stage or persist.
func (p *Plan) IsEmpty() bool {
	return len(p.New) == 0 && len(p.Removed) == 0
}

// ToStage returns the records that would be staged, in execution order:
// removed rollback scripts followed by new commit scripts. New rollback
// scripts are only recorded.
func (p *Plan) ToStage() []*script.Record {
	staged := make([]*script.Record, 0, len(p.Rollbacks)+len(p.New))
	staged = append(staged, p.Rollbacks...)
	for _, r := range p.New {
		if !r.IsRollback() {
			staged = append(staged, r)
		}
	}

	return staged
}

// Plan computes the difference between dir and applied without touching the
// filesystem or the script log.
func (e *Engine) Plan(ctx context.Context, dir string, applied []*script.Record) (*Plan, error) {
	newest, err := e.log.Newest(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load newest script")
	}

	plan := new(Plan)
	if newest != nil {
		plan.Checkpoint = newest.Timestamp
	}

	scanned, err := script.Scan(e.logger, dir, script.All)
	if err != nil {
		return nil, err
	}

	present := script.Names(scanned)
	if newest != nil && fileExists(filepath.Join(dir, newest.Name)) {
		present.Add(newest.Name)
	}

	appliedNames := script.Names(applied)
	for _, r := range scanned {
		if r.Timestamp.Before(plan.Checkpoint) || appliedNames.Has(r.Name) {
			continue
		}

		plan.New = append(plan.New, r)
	}

	for _, r := range applied {
		if present.Has(r.Name) {
			continue
		}

		plan.Removed = append(plan.Removed, r)
		plan.Superseded = append(plan.Superseded, r.ID)
		if r.IsRollback() {
			plan.Rollbacks = append(plan.Rollbacks, r)
		}
	}

	return plan, nil
}

// Reconcile plans, stages and persists the changes for dir.
//
// When staging fails the files staged by this call are removed and the script
// log is left untouched. The returned error wraps ErrStaging. Staged files are
// also removed when the script log can't be updated. Files of an earlier run
// that were overwritten get their previous content back in both cases.
func (e *Engine) Reconcile(ctx context.Context, dir string, applied []*script.Record) (*Result, error) {
	plan, err := e.Plan(ctx, dir, applied)
	if err != nil {
		return nil, err
	}

	staged, err := e.stage(dir, plan)
	if err != nil {
		return nil, err
	}

	if err := e.persist(ctx, plan); err != nil {
		e.unstage(staged)
		return nil, err
	}

	e.logger.Info("Reconciled scripts",
		"dir", dir,
		"new", len(plan.New),
		"removed", len(plan.Removed),
		"staged", len(staged),
	)

	return &Result{Plan: plan, Staged: stagedPaths(staged)}, nil
}

// Import records every script in dir that isn't logged yet as executed
// without running anything. It is used to baseline an existing database.
func (e *Engine) Import(ctx context.Context, dir string) ([]*script.Record, error) {
	scanned, err := script.Scan(e.logger, dir, script.All)
	if err != nil {
		return nil, err
	}

	applied, err := e.log.All(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load script log")
	}

	logged := script.Names(applied)
	var records []*script.Record
	for _, r := range scanned {
		if !logged.Has(r.Name) {
			records = append(records, r)
		}
	}

	if len(records) == 0 {
		return nil, nil
	}

	if err := e.log.InTx(ctx, func(l scriptlog.Log) error {
		return l.BatchCreate(ctx, records)
	}); err != nil {
		return nil, errors.Wrap(err, "failed to import scripts")
	}

	e.logger.Info("Imported scripts", "dir", dir, "count", len(records))
	return records, nil
}

func (e *Engine) persist(ctx context.Context, plan *Plan) error {
	if plan.IsEmpty() {
		return nil
	}

	err := e.log.InTx(ctx, func(l scriptlog.Log) error {
		if len(plan.Superseded) > 0 {
			if err := l.DeleteByIDs(ctx, plan.Superseded); err != nil {
				return err
			}
		}

		if len(plan.New) > 0 {
			if err := l.BatchCreate(ctx, plan.New); err != nil {
				return err
			}
		}

		return nil
	})

	return errors.Wrap(err, "failed to update script log")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
