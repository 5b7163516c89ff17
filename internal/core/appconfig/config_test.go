package appconfig

import (
	"testing"

	"github.com/artpar/dploy/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Resolve Tests
// =============================================================================

func TestResolve_Defaults(t *testing.T) {
	cfg := AppConfig{Name: "demo"}

	r := cfg.Resolve(domain.CommandRun)

	assert.Equal(t, "demo", r.Name)
	assert.Equal(t, DefaultDockerfile, r.Dockerfile)
	assert.Equal(t, DefaultContext, r.Context)
	assert.Equal(t, DefaultEnvFile, r.EnvFile)
	assert.Equal(t, DefaultPort, r.Port)
	assert.Empty(t, r.Dependencies)
}

func TestResolve_OverrideForActiveCommandOnly(t *testing.T) {
	cfg := AppConfig{
		Name:       "demo",
		Dockerfile: "Dockerfile",
		Env:        []string{"API_KEY"},
		Overrides: map[string]Override{
			"dev":    {Dockerfile: "Dockerfile.dev"},
			"deploy": {Name: "demo-prod", Env: []string{"SECRET"}},
		},
	}

	dev := cfg.Resolve(domain.CommandDev)
	assert.Equal(t, "Dockerfile.dev", dev.Dockerfile)
	assert.Equal(t, "demo", dev.Name)
	assert.Equal(t, []string{"API_KEY"}, dev.Env)

	deploy := cfg.Resolve(domain.CommandDeploy)
	assert.Equal(t, "Dockerfile", deploy.Dockerfile)
	assert.Equal(t, "demo-prod", deploy.Name)
	assert.Equal(t, []string{"SECRET"}, deploy.Env)

	run := cfg.Resolve(domain.CommandRun)
	assert.Equal(t, "demo", run.Name)
}

func TestResolve_DoesNotAliasInput(t *testing.T) {
	cfg := AppConfig{Name: "demo", Env: []string{"A"}}

	r := cfg.Resolve(domain.CommandRun)
	r.Env[0] = "B"

	assert.Equal(t, "A", cfg.Env[0])
}

func TestResolve_DependenciesKeepOrderAndDefaults(t *testing.T) {
	cfg := AppConfig{
		Name: "demo",
		Dependencies: []Dependency{
			{Kind: "keydb"},
			{Kind: "postgres", Password: "secret"},
		},
	}

	r := cfg.Resolve(domain.CommandDev)

	require.Len(t, r.Dependencies, 2)
	assert.Equal(t, []domain.ServiceKind{domain.ServiceKeydb, domain.ServicePostgres}, r.DependencyKinds())

	pg, ok := r.Dependency(domain.ServicePostgres)
	require.True(t, ok)
	assert.Equal(t, "postgres", pg.Username)
	assert.Equal(t, "secret", pg.Password)
	assert.Equal(t, "demo", pg.Database)

	_, ok = r.Dependency(domain.ServiceProxy)
	assert.False(t, ok)
}

func TestResolve_DatabaseDefaultsToOverriddenName(t *testing.T) {
	cfg := AppConfig{
		Name:         "demo",
		Dependencies: []Dependency{{Kind: "postgres"}},
		Overrides:    map[string]Override{"run": {Name: "demo-local"}},
	}

	r := cfg.Resolve(domain.CommandRun)

	pg, ok := r.Dependency(domain.ServicePostgres)
	require.True(t, ok)
	assert.Equal(t, "demo-local", pg.Database)
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       AppConfig
		wantField string
	}{
		{"valid", AppConfig{Name: "demo", Dependencies: []Dependency{{Kind: "postgres"}, {Kind: "keydb"}}}, ""},
		{"missing name", AppConfig{}, "name"},
		{"bad port", AppConfig{Name: "demo", Port: 70000}, "port"},
		{"unknown kind", AppConfig{Name: "demo", Dependencies: []Dependency{{Kind: "mysql"}}}, "dependencies[0].kind"},
		{"app as dependency", AppConfig{Name: "demo", Dependencies: []Dependency{{Kind: "app"}}}, "dependencies[0].kind"},
		{"proxy as dependency", AppConfig{Name: "demo", Dependencies: []Dependency{{Kind: "proxy"}}}, "dependencies[0].kind"},
		{"duplicate", AppConfig{Name: "demo", Dependencies: []Dependency{{Kind: "postgres"}, {Kind: "postgres"}}}, "dependencies[1].kind"},
		{"unknown override", AppConfig{Name: "demo", Overrides: map[string]Override{"prod": {}}}, "override.prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}
