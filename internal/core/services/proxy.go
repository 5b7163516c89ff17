package services

import (
	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/core/domain"
	"github.com/artpar/dploy/internal/core/traefik"
)

const (
	// dockerSocket is mounted into the proxy so it can discover routed containers.
	dockerSocket = "/var/run/docker.sock"

	publicHost = "0.0.0.0"
)

// Proxy is the shared Traefik reverse proxy. It publishes fixed ports 80 and 443.
type Proxy struct {
	ctx      *deployment.Context
	bindings []deployment.HostPortBinding
}

func newProxy(ctx *deployment.Context) *Proxy {
	name := ctx.ContainerNameOf(domain.ServiceProxy)
	return &Proxy{
		ctx: ctx,
		bindings: []deployment.HostPortBinding{
			deployment.ManualHostPortBinding(80, publicHost, 80, name),
			deployment.ManualHostPortBinding(443, publicHost, 443, name),
		},
	}
}

func (p *Proxy) Kind() domain.ServiceKind { return domain.ServiceProxy }

func (p *Proxy) Bindings() []deployment.HostPortBinding {
	return append([]deployment.HostPortBinding(nil), p.bindings...)
}

func (p *Proxy) ExportedVars() []deployment.EnvVar { return nil }

func (p *Proxy) ContainerPlan(runID string, _ map[string]string) deployment.ContainerPlan {
	kind := p.Kind()
	return p.ctx.BuildContainerPlan(deployment.BuildContainerPlanParams{
		Kind:  kind,
		RunID: runID,
		Image: kind.Image(),
		Command: traefik.ProxyArgs(traefik.ProxyParams{
			Network:    deployment.NetworkName,
			ACMEEmail:  p.ctx.Config().ACMEEmail,
			StorageDir: kind.DataPath(),
		}),
		Mounts: []deployment.MountPlan{
			{Source: dockerSocket, Target: dockerSocket, ReadOnly: true},
			p.ctx.MountOf(kind, kind.DataPath()),
		},
		Bindings: p.Bindings(),
	})
}

func (p *Proxy) ConnectionInfo() []string { return nil }
