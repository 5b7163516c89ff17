package deployment

import "github.com/artpar/dploy/internal/core/domain"

// ImageTag is the only tag dploy pulls and builds. Images are always re-pulled.
const ImageTag = "latest"

// =============================================================================
// Container Plan Types
// =============================================================================

// ContainerPlan represents a planned container configuration.
// This is the pure output of planning, ready for the shell to execute.
// A plan is built fresh for every reconcile attempt.
type ContainerPlan struct {
	Name          string
	Kind          domain.ServiceKind
	Image         string
	Build         *BuildPlan
	Command       []string
	Env           map[string]string
	Labels        map[string]string
	Mounts        []MountPlan
	Ports         []HostPortBinding
	Network       string
	RestartPolicy RestartPolicyPlan
}

// BuildPlan describes a local image build. A plan with a BuildPlan is never pulled.
type BuildPlan struct {
	ContextDir string
	Dockerfile string
}

// MountPlan represents a planned bind mount.
type MountPlan struct {
	Source           string
	Target           string
	ReadOnly         bool
	CreateMountpoint bool
}

// RestartPolicyPlan represents a restart policy.
type RestartPolicyPlan struct {
	Name string
}

// =============================================================================
// Container Labels
// =============================================================================

// Label keys used for dploy container identification.
const (
	LabelManaged   = "dploy.managed"
	LabelApp       = "dploy.app"
	LabelNamespace = "dploy.namespace"
	LabelService   = "dploy.service"
	LabelRun       = "dploy.run"
)
