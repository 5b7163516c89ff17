package deployment

import (
	"regexp"
	"sort"
)

// =============================================================================
// Environment Types
// =============================================================================

// EnvVar is a single NAME=VALUE pair.
type EnvVar struct {
	Name  string
	Value string
}

// Environment is the merged variable set written to the env file.
// A name appears in at most one section.
type Environment struct {
	Service []EnvVar
	App     []EnvVar
}

// =============================================================================
// Merge
// =============================================================================

// MergeEnvironment combines the variables exported by services with the app's
// declared names and the values of a previously written file.
//
// Rules:
//   - every service variable is kept with its freshly computed value
//   - app names are the declared names plus the names already in the file
//   - a name claimed by a service is dropped from the app section
//   - an app value is the existing one, or empty
//
// App names are sorted.
//
// Example:
//
//	env := MergeEnvironment(
//	    []EnvVar{{"DATABASE_URL", "postgres://..."}},
//	    []string{"API_KEY"},
//	    map[string]string{"FOO": "bar", "DATABASE_URL": "stale"},
//	)
//	// env.Service: [DATABASE_URL=postgres://...]
//	// env.App:     [API_KEY=, FOO=bar]
func MergeEnvironment(service []EnvVar, declared []string, existing map[string]string) Environment {
	claimed := make(map[string]bool, len(service))
	env := Environment{Service: make([]EnvVar, 0, len(service))}
	for _, v := range service {
		if claimed[v.Name] {
			continue
		}
		claimed[v.Name] = true
		env.Service = append(env.Service, v)
	}

	names := make(map[string]bool, len(declared)+len(existing))
	for _, n := range declared {
		names[n] = true
	}
	for n := range existing {
		names[n] = true
	}

	appNames := make([]string, 0, len(names))
	for n := range names {
		if n == "" || claimed[n] {
			continue
		}
		appNames = append(appNames, n)
	}
	sort.Strings(appNames)

	env.App = make([]EnvVar, 0, len(appNames))
	for _, n := range appNames {
		env.App = append(env.App, EnvVar{Name: n, Value: existing[n]})
	}
	return env
}

// =============================================================================
// Variable Substitution
// =============================================================================

// varPlaceholderRegex matches ${VAR} and ${VAR:-default}.
// Group 1 is the name, group 2 the ":-default" suffix, group 3 the default.
var varPlaceholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// SubstituteVariables replaces ${VAR} and ${VAR:-default} placeholders.
//
// Behavior:
//   - ${VAR} is replaced with variables["VAR"] if present, otherwise kept as-is
//   - ${VAR:-default} is replaced with variables["VAR"] if present, otherwise "default"
//
// Example:
//
//	SubstituteVariables("${POSTGRES_HOST}:5432", map[string]string{"POSTGRES_HOST": "db"})
//	// Returns: "db:5432"
func SubstituteVariables(value string, variables map[string]string) string {
	return varPlaceholderRegex.ReplaceAllStringFunc(value, func(match string) string {
		sub := varPlaceholderRegex.FindStringSubmatch(match)
		if val, ok := variables[sub[1]]; ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}
