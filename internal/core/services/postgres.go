package services

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/artpar/dploy/internal/core/appconfig"
	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/core/domain"
)

// Postgres is the PostgreSQL dependency.
type Postgres struct {
	ctx     *deployment.Context
	binding deployment.HostPortBinding
	creds   appconfig.ResolvedDependency
}

func (p *Postgres) Kind() domain.ServiceKind { return domain.ServicePostgres }

func (p *Postgres) Bindings() []deployment.HostPortBinding {
	return []deployment.HostPortBinding{p.binding}
}

// Credentials returns the user, password and database the container is created with.
func (p *Postgres) Credentials() appconfig.ResolvedDependency { return p.creds }

// URL builds a connection URL for host:port.
func (p *Postgres) URL(host string, port int) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.creds.Username, p.creds.Password),
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + p.creds.Database,
	}
	return u.String()
}

func (p *Postgres) ExportedVars() []deployment.EnvVar {
	return []deployment.EnvVar{
		{Name: "DATABASE_URL", Value: p.URL(p.binding.InnerHost, p.binding.InnerPort)},
		{Name: "POSTGRES_HOST", Value: p.binding.InnerHost},
		{Name: "POSTGRES_PORT", Value: strconv.Itoa(p.binding.InnerPort)},
		{Name: "POSTGRES_USER", Value: p.creds.Username},
		{Name: "POSTGRES_PASSWORD", Value: p.creds.Password},
		{Name: "POSTGRES_DB", Value: p.creds.Database},
	}
}

func (p *Postgres) ContainerPlan(runID string, _ map[string]string) deployment.ContainerPlan {
	kind := p.Kind()
	return p.ctx.BuildContainerPlan(deployment.BuildContainerPlanParams{
		Kind:  kind,
		RunID: runID,
		Image: kind.Image(),
		Env: map[string]string{
			"POSTGRES_USER":     p.creds.Username,
			"POSTGRES_PASSWORD": p.creds.Password,
			"POSTGRES_DB":       p.creds.Database,
		},
		Mounts:   []deployment.MountPlan{p.ctx.MountOf(kind, kind.DataPath())},
		Bindings: p.Bindings(),
	})
}

func (p *Postgres) ConnectionInfo() []string {
	if !p.binding.Exposed() {
		return nil
	}
	return []string{p.URL(p.binding.HostHost, p.binding.HostPort)}
}
