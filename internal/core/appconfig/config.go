// Package appconfig defines the application configuration read from dploy.toml
// and resolves per-command override rules into a flat view.
//
// This package is pure: loading from disk happens in cmd/dploy.
package appconfig

import "github.com/artpar/dploy/internal/core/domain"

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultDockerfile = "Dockerfile"
	DefaultContext    = "."
	DefaultEnvFile    = ".env"
	DefaultPort       = 3000
)

// =============================================================================
// Config Types
// =============================================================================

// AppConfig is the user-facing application configuration.
type AppConfig struct {
	Name         string              `mapstructure:"name"`
	Dockerfile   string              `mapstructure:"dockerfile"`
	Context      string              `mapstructure:"context"`
	EnvFile      string              `mapstructure:"env_file"`
	Env          []string            `mapstructure:"env"`
	Watch        []string            `mapstructure:"watch"`
	Port         int                 `mapstructure:"port"`
	Domain       string              `mapstructure:"domain"`
	ACMEEmail    string              `mapstructure:"acme_email"`
	Dependencies []Dependency        `mapstructure:"dependencies"`
	Overrides    map[string]Override `mapstructure:"override"`
}

// Dependency declares one dependency service. Declaration order is deployment order.
type Dependency struct {
	Kind     string `mapstructure:"kind"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Override holds per-command replacements. Zero values mean "not overridden".
type Override struct {
	Name       string   `mapstructure:"name"`
	Dockerfile string   `mapstructure:"dockerfile"`
	Context    string   `mapstructure:"context"`
	EnvFile    string   `mapstructure:"env_file"`
	Env        []string `mapstructure:"env"`
	Watch      []string `mapstructure:"watch"`
	Port       int      `mapstructure:"port"`
	Domain     string   `mapstructure:"domain"`
}

// =============================================================================
// Resolved View
// =============================================================================

// Resolved is the configuration as seen by one command, after overrides and defaults.
type Resolved struct {
	Name         string
	Dockerfile   string
	Context      string
	EnvFile      string
	Env          []string
	Watch        []string
	Port         int
	Domain       string
	ACMEEmail    string
	Dependencies []ResolvedDependency
}

// ResolvedDependency is a dependency with its kind parsed and credentials defaulted.
type ResolvedDependency struct {
	Kind     domain.ServiceKind
	Username string
	Password string
	Database string
}

// DependencyKinds returns the declared dependency kinds in declaration order.
func (r Resolved) DependencyKinds() []domain.ServiceKind {
	kinds := make([]domain.ServiceKind, 0, len(r.Dependencies))
	for _, d := range r.Dependencies {
		kinds = append(kinds, d.Kind)
	}
	return kinds
}

// Dependency returns the declared dependency of the given kind.
func (r Resolved) Dependency(kind domain.ServiceKind) (ResolvedDependency, bool) {
	for _, d := range r.Dependencies {
		if d.Kind == kind {
			return d, true
		}
	}
	return ResolvedDependency{}, false
}
