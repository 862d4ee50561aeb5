package scriptlog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/consts"
	"github.com/pseudomuto/scmdb/pkg/script"
)

type (
	// Log is the subset of the script log used while reconciling.
	Log interface {
		// Newest returns the most recently modified record, or nil when the log is empty.
		Newest(context.Context) (*script.Record, error)

		// BatchCreate inserts records, assigning an ID to each of them.
		BatchCreate(context.Context, []*script.Record) error

		// DeleteByIDs removes the records with the given IDs.
		DeleteByIDs(context.Context, []string) error
	}

	// Store is a script log backend.
	Store interface {
		Log

		// All returns every record ordered by timestamp and name.
		All(context.Context) ([]*script.Record, error)

		// InTx runs fn against a Log bound to a single transaction. The
		// transaction is committed when fn returns nil and rolled back otherwise.
		InTx(context.Context, func(Log) error) error

		// Migrate creates the log table when it doesn't exist.
		Migrate(context.Context) error

		// Close releases the underlying connection.
		Close() error
	}

	// Options configures Open.
	Options struct {
		// Driver is one of sqlite, postgres, mysql or a registered driver name
		Driver string

		// DSN is the driver specific data source name
		DSN string

		// Table is the name of the log table
		Table string
	}

	// OpenFunc opens a Store for a registered driver.
	OpenFunc func(context.Context, Options) (Store, error)
)

var (
	registryMu sync.RWMutex
	registry   = map[string]OpenFunc{}
)

// Register makes a backend available to Open under name.
func Register(name string, fn OpenFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[strings.ToLower(name)] = fn
}

// Drivers returns the names of all available drivers, sorted.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Open connects to the script log described by opts and ensures its table exists.
//
// Example:
//
//	store, err := scriptlog.Open(ctx, scriptlog.Options{
//		Driver: "postgres",
//		DSN:    "postgres://scmdb@localhost:5432/scmdb",
//	})
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.Driver == "" {
		opts.Driver = consts.DefaultLogDriver
	}
	if opts.Table == "" {
		opts.Table = consts.DefaultLogTable
	}

	registryMu.RLock()
	fn, ok := registry[strings.ToLower(opts.Driver)]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.Errorf("script log driver '%s' not supported. Must be one of: %s",
			opts.Driver, strings.Join(Drivers(), ", "))
	}

	store, err := fn(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s script log", opts.Driver)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, "failed to create script log table")
	}

	return store, nil
}
