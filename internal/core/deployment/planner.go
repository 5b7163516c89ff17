package deployment

// =============================================================================
// Container Reconcile Planning
// =============================================================================

// ContainerState is what an inspect of the container by name reported.
type ContainerState int

const (
	StateNotFound ContainerState = iota
	StateStopped
	StateRunning
)

func (s ContainerState) String() string {
	switch s {
	case StateNotFound:
		return "not found"
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Step is a single runtime action of a reconcile.
type Step string

const (
	StepStop   Step = "stop"
	StepRemove Step = "remove"
	StepCreate Step = "create"
	StepStart  Step = "start"
)

// PlanReconcile determines the actions that bring a container from its observed
// state to a freshly created, running container.
//
// The container is always recreated, so configuration changes are applied even
// when the existing container is healthy:
//   - not found → create, start
//   - stopped   → remove, create, start
//   - running   → stop, remove, create, start
//
// Example:
//
//	for _, step := range PlanReconcile(StateRunning) {
//	    // stop, remove, create, start
//	}
func PlanReconcile(state ContainerState) []Step {
	switch state {
	case StateRunning:
		return []Step{StepStop, StepRemove, StepCreate, StepStart}
	case StateStopped:
		return []Step{StepRemove, StepCreate, StepStart}
	default:
		return []Step{StepCreate, StepStart}
	}
}

// CanStopContainer checks if a container in the given state needs a stop call.
// Returns whether the stop applies and the reason if not.
func CanStopContainer(state ContainerState) (bool, string) {
	if state != StateRunning {
		return false, "already stopped"
	}
	return true, ""
}
