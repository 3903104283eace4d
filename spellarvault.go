package spellarvault

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/boydwold/spellar-vault/internal/config"
	"github.com/boydwold/spellar-vault/internal/platform"
	"github.com/boydwold/spellar-vault/pkg/pipeline"
)

// --- Types ---

// Config is the environment-driven service configuration.
type Config = config.Config

// Service is the wired webhook pipeline.
type Service = platform.Service

// ServiceState is the introspection snapshot of a Service.
type ServiceState = platform.ServiceState

// Result records what one meeting produced.
type Result = pipeline.Result

// --- Configuration ---

// Option defines a functional option for configuring the service.
type Option = platform.Option

// LoadConfig reads and validates the environment.
func LoadConfig() (Config, error) {
	return config.Load()
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRegistry collects metrics into reg.
func WithRegistry(reg *prometheus.Registry) Option {
	return platform.WithRegistry(reg)
}

// WithDevSafety controls the temporary vault used under `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithForceTemp forces the use of a temporary vault (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithResultHook observes every finished background task.
func WithResultHook(fn func(Result)) Option {
	return platform.WithResultHook(fn)
}

// --- Factory ---

// New wires a Service from cfg. Call Start before serving.
func New(cfg Config, opts ...Option) (*Service, error) {
	return platform.New(cfg, opts...)
}

// --- Safety & Utils ---

// ResolveVaultPath determines the actual vault path based on safety rules.
func ResolveVaultPath(userPath string, forceTemp bool) string {
	return platform.ResolveVaultPath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindVault looks upwards from startDir for an Obsidian vault.
func FindVault(startDir string) (string, error) {
	return platform.FindVault(startDir)
}
