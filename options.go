package spinobs

import (
	"log/slog"

	"github.com/hupe1980/spinobs/blobstore"
	"github.com/hupe1980/spinobs/lattice"
	"github.com/hupe1980/spinobs/resource"
)

type options struct {
	logger      *Logger
	verbose     bool
	tolerance   float64
	store       blobstore.BlobStore
	observable  string
	measurement int
	maxShell    int
	concurrency int
	controller  *resource.Controller
}

// Option configures Open behavior.
type Option func(*options)

// WithLogger configures structured logging for queries.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithVerbose enables debug-level progress output. It only affects
// diagnostics, never returned values.
func WithVerbose(verbose bool) Option {
	return func(o *options) {
		o.verbose = verbose
	}
}

// WithTolerance sets the coincidence and nearest-match tolerance.
//
// It must match the tolerance the simulation used when folding sites
// into the finite cluster, else correlation lookups silently fail to
// match. Defaults to 1e-6 in the stored length units.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		if tol > 0 {
			o.tolerance = tol
		}
	}
}

// WithBlobStore reads containers from the given store instead of the
// local filesystem.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		if store != nil {
			o.store = store
		}
	}
}

// WithObservable selects the observable group by name. By default the
// container must hold exactly one observable.
func WithObservable(name string) Option {
	return func(o *options) {
		o.observable = name
	}
}

// WithMeasurement selects a stored measurement by index. The default is
// the last measurement, the one furthest down the renormalization flow.
func WithMeasurement(index int) Option {
	return func(o *options) {
		if index >= 0 {
			o.measurement = index
		}
	}
}

// WithMaxShell fixes the translation shell of the lattice expansion
// instead of growing it adaptively.
func WithMaxShell(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxShell = n
		}
	}
}

// WithConcurrency bounds the number of momentum points evaluated in
// parallel. The default is GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithController attaches a resource controller gating query workers.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		tolerance:   lattice.DefaultTolerance,
		store:       blobstore.NewLocalStore(""),
		measurement: -1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		if o.verbose {
			o.logger = NewTextLogger(slog.LevelDebug)
		} else {
			o.logger = NoopLogger()
		}
	}
	return o
}
