package platform

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/boydwold/spellar-vault/pkg/pipeline"
)

// options holds the wiring choices that do not come from the environment.
type options struct {
	logger    *slog.Logger
	registry  *prometheus.Registry
	devSafety bool
	forceTemp bool
	onResult  func(pipeline.Result)
}

// Option defines a functional option for configuring the service.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		devSafety: true,
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegistry collects metrics into reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithDevSafety controls the sandbox used under `go run`.
// By default (true) a dev build writes into a temporary vault so a stray
// webhook cannot touch the real one.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithForceTemp forces the temporary vault (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithResultHook observes every finished background task.
func WithResultHook(fn func(pipeline.Result)) Option {
	return func(o *options) {
		o.onResult = fn
	}
}
