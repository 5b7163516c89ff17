package appconfig

import (
	"fmt"

	"github.com/artpar/dploy/internal/core/domain"
)

// =============================================================================
// Validation
// =============================================================================

// ValidationError names the offending field of an invalid configuration.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration before any side effect takes place.
// Returns the first problem found as a *ValidationError.
func (c AppConfig) Validate() error {
	if field, msg := validateFields(c); field != "" {
		return &ValidationError{Field: field, Message: msg}
	}
	return nil
}

func validateFields(c AppConfig) (field, message string) {
	if c.Name == "" {
		return "name", "name is required"
	}
	if c.Port < 0 || c.Port > 65535 {
		return "port", fmt.Sprintf("port %d is out of range", c.Port)
	}

	seen := make(map[domain.ServiceKind]bool, len(c.Dependencies))
	for i, d := range c.Dependencies {
		f := fmt.Sprintf("dependencies[%d].kind", i)
		kind, err := domain.ParseServiceKind(d.Kind)
		if err != nil {
			return f, err.Error()
		}
		if !kind.IsDependency() {
			return f, fmt.Sprintf("%q cannot be declared as a dependency", d.Kind)
		}
		if seen[kind] {
			return f, fmt.Sprintf("%q is declared more than once", d.Kind)
		}
		seen[kind] = true
	}

	for key, o := range c.Overrides {
		if _, err := domain.ParseCommandKind(key); err != nil {
			return "override." + key, err.Error()
		}
		if o.Port < 0 || o.Port > 65535 {
			return "override." + key + ".port", fmt.Sprintf("port %d is out of range", o.Port)
		}
	}

	return "", ""
}
