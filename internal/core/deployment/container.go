package deployment

import (
	"sort"

	"github.com/artpar/dploy/internal/core/domain"
)

// =============================================================================
// Container Plan Building Functions
// =============================================================================

// BuildContainerPlanParams contains the per-service inputs of a container plan.
type BuildContainerPlanParams struct {
	Kind     domain.ServiceKind
	RunID    string
	Image    string
	Build    *BuildPlan
	Command  []string
	Env      map[string]string
	Labels   map[string]string
	Mounts   []MountPlan
	Bindings []HostPortBinding
}

// BuildContainerPlan combines service inputs with the naming and network rules
// of the context.
//
// The function:
//   - names the container with ContainerNameOf
//   - tags a built image with ImageRefOf, otherwise appends ImageTag to Image
//   - adds ownership labels, with service labels on top
//   - joins the shared network when the command uses one
//   - restarts deployed containers unless stopped
//
// Example:
//
//	plan := ctx.BuildContainerPlan(BuildContainerPlanParams{
//	    Kind:  domain.ServicePostgres,
//	    RunID: runID,
//	    Image: "postgres",
//	    Env:   map[string]string{"POSTGRES_PASSWORD": "postgres"},
//	})
func (c *Context) BuildContainerPlan(params BuildContainerPlanParams) ContainerPlan {
	plan := ContainerPlan{
		Name:    c.ContainerNameOf(params.Kind),
		Kind:    params.Kind,
		Build:   params.Build,
		Command: params.Command,
		Env:     make(map[string]string, len(params.Env)),
		Labels:  c.Labels(params.Kind, params.RunID),
		Mounts:  params.Mounts,
		Ports:   params.Bindings,
	}

	if params.Build != nil {
		plan.Image = c.ImageRefOf(params.Kind)
	} else {
		plan.Image = params.Image + ":" + ImageTag
	}

	for k, v := range params.Env {
		plan.Env[k] = v
	}
	for k, v := range params.Labels {
		plan.Labels[k] = v
	}

	if c.ShouldCreateNetwork() {
		plan.Network = NetworkName
	}

	plan.RestartPolicy = restartPolicyFor(c.command.Kind)

	return plan
}

func restartPolicyFor(kind domain.CommandKind) RestartPolicyPlan {
	if kind == domain.CommandDeploy {
		return RestartPolicyPlan{Name: "unless-stopped"}
	}
	return RestartPolicyPlan{Name: "no"}
}

// EnvList renders the plan environment as sorted NAME=VALUE entries.
func (p ContainerPlan) EnvList() []string {
	names := make([]string, 0, len(p.Env))
	for k := range p.Env {
		names = append(names, k)
	}
	sort.Strings(names)

	list := make([]string, 0, len(names))
	for _, k := range names {
		list = append(list, k+"="+p.Env[k])
	}
	return list
}
