package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Naming Constants
// =============================================================================

const (
	// DefaultNamespace is used when no namespace is given on the command line.
	DefaultNamespace = "default"

	// SingletonPrefix prefixes containers shared by every application on a host.
	SingletonPrefix = "dploy-singleton"
)

var ErrUnknownServiceKind = errors.New("unknown service kind")

// =============================================================================
// Service Kind
// =============================================================================

// ServiceKind is one of the fixed dependency types or the application itself.
type ServiceKind string

const (
	ServiceApp      ServiceKind = "app"
	ServicePostgres ServiceKind = "postgres"
	ServiceKeydb    ServiceKind = "keydb"
	ServiceProxy    ServiceKind = "proxy"
)

// serviceTraits holds the fixed per-kind attributes.
type serviceTraits struct {
	suffix        string
	singleton     bool
	fixedExposure bool
	image         string
	internalPort  int
	dataPath      string
}

// serviceTable is the single source of truth for kind attributes.
// App has no suffix, image or port here; those come from the app configuration.
var serviceTable = map[ServiceKind]serviceTraits{
	ServiceApp: {},
	ServicePostgres: {
		suffix:       "postgres",
		image:        "postgres",
		internalPort: 5432,
		dataPath:     "/var/lib/postgresql/data",
	},
	ServiceKeydb: {
		suffix:       "keydb",
		image:        "eqalpha/keydb",
		internalPort: 6379,
		dataPath:     "/data",
	},
	ServiceProxy: {
		suffix:        "proxy",
		singleton:     true,
		fixedExposure: true,
		image:         "traefik",
		internalPort:  80,
		dataPath:      "/letsencrypt",
	},
}

// ParseServiceKind converts a config or flag value into a ServiceKind.
func ParseServiceKind(s string) (ServiceKind, error) {
	kind := ServiceKind(s)
	if _, ok := serviceTable[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownServiceKind, s)
	}
	return kind, nil
}

// IsSingleton reports whether the container identity is shared across applications.
func (k ServiceKind) IsSingleton() bool {
	return serviceTable[k].singleton
}

// HasFixedExposure reports whether the kind publishes fixed host ports and therefore
// always lives in the default namespace.
func (k ServiceKind) HasFixedExposure() bool {
	return serviceTable[k].fixedExposure
}

// Suffix returns the fixed naming tag. It is empty for App.
func (k ServiceKind) Suffix() string {
	return serviceTable[k].suffix
}

// Image returns the registry image for dependency kinds. It is empty for App, which is built.
func (k ServiceKind) Image() string {
	return serviceTable[k].image
}

// InternalPort returns the port the service listens on inside its container.
func (k ServiceKind) InternalPort() int {
	return serviceTable[k].internalPort
}

// DataPath returns the persistent data directory inside the container, if any.
func (k ServiceKind) DataPath() string {
	return serviceTable[k].dataPath
}

// IsDependency reports whether the kind may be declared as an application dependency.
// The proxy is managed implicitly and the app is never its own dependency.
func (k ServiceKind) IsDependency() bool {
	return k == ServicePostgres || k == ServiceKeydb
}

func (k ServiceKind) String() string {
	return string(k)
}
