package platform

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	VaultPath string `json:"vault_path"`
	Vault     any    `json:"vault"`
	Pool      any    `json:"pool"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	return ServiceState{
		VaultPath: s.VaultPath,
		Vault:     s.Vault.State(),
		Pool:      s.Pool.State(),
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
