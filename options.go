package seiretsu

import (
	"log/slog"
	"runtime"
)

const (
	defaultInitialCapacity = 4096
	defaultChunkSize       = 4096
)

type options struct {
	registry        *Registry
	logger          *slog.Logger
	scheduler       Scheduler
	initialCapacity int
	workers         int
	chunkSize       int
}

func defaultOptions() options {
	return options{
		initialCapacity: defaultInitialCapacity,
		workers:         runtime.GOMAXPROCS(0),
		chunkSize:       defaultChunkSize,
	}
}

// Option configures a World.
type Option func(*options)

// WithInitialCapacity pre-allocates the entity table and the root archetype
// for n entities. Choosing a suitable capacity avoids re-allocations while
// spawning.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.initialCapacity = n
		}
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRegistry shares a component type registry between Worlds. By default
// every World owns a private Registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithWorkers bounds how many Job chunks run at once. Defaults to
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithChunkSize sets how many rows one Job work unit covers.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithScheduler replaces the work-distribution service used by Job.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}
