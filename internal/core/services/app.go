package services

import (
	"fmt"

	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/core/domain"
	"github.com/artpar/dploy/internal/core/traefik"
)

// App is the user's application, built from its Dockerfile.
type App struct {
	ctx     *deployment.Context
	binding deployment.HostPortBinding
	set     *Set
}

func (a *App) Kind() domain.ServiceKind { return domain.ServiceApp }

func (a *App) Bindings() []deployment.HostPortBinding {
	return []deployment.HostPortBinding{a.binding}
}

func (a *App) ExportedVars() []deployment.EnvVar { return nil }

// Environment returns the container environment: every dependency variable plus
// the app-owned values. App values may reference dependency variables as ${NAME}.
func (a *App) Environment(appEnv map[string]string) map[string]string {
	env := make(map[string]string)
	for _, v := range a.set.ServiceVars() {
		env[v.Name] = v.Value
	}
	service := make(map[string]string, len(env))
	for k, v := range env {
		service[k] = v
	}
	for k, v := range appEnv {
		if _, claimed := service[k]; claimed {
			continue
		}
		env[k] = deployment.SubstituteVariables(v, service)
	}
	return env
}

func (a *App) ContainerPlan(runID string, appEnv map[string]string) deployment.ContainerPlan {
	cfg := a.ctx.Config()

	var labels map[string]string
	if a.ctx.Command().Kind == domain.CommandDeploy && cfg.Domain != "" {
		labels = traefik.GenerateLabels(traefik.LabelParams{
			RouterName: a.ctx.ContainerNameOf(domain.ServiceApp),
			Hostname:   cfg.Domain,
			Port:       cfg.Port,
			Network:    deployment.NetworkName,
			EnableTLS:  cfg.ACMEEmail != "",
		})
	}

	return a.ctx.BuildContainerPlan(deployment.BuildContainerPlanParams{
		Kind:  domain.ServiceApp,
		RunID: runID,
		Build: &deployment.BuildPlan{
			ContextDir: cfg.Context,
			Dockerfile: cfg.Dockerfile,
		},
		Env:      a.Environment(appEnv),
		Labels:   labels,
		Bindings: a.Bindings(),
	})
}

func (a *App) ConnectionInfo() []string {
	if !a.binding.Exposed() {
		return nil
	}
	return []string{fmt.Sprintf("http://%s", a.binding.HostAddress())}
}
