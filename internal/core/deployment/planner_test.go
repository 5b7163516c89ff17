package deployment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artpar/dploy/internal/core/domain"
)

// =============================================================================
// PlanReconcile Tests
// =============================================================================

func TestPlanReconcile(t *testing.T) {
	tests := []struct {
		state ContainerState
		want  []Step
	}{
		{StateNotFound, []Step{StepCreate, StepStart}},
		{StateStopped, []Step{StepRemove, StepCreate, StepStart}},
		{StateRunning, []Step{StepStop, StepRemove, StepCreate, StepStart}},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, PlanReconcile(tt.state))
		})
	}
}

func TestPlanReconcile_AlwaysEndsRunning(t *testing.T) {
	for _, state := range []ContainerState{StateNotFound, StateStopped, StateRunning} {
		steps := PlanReconcile(state)
		assert.Equal(t, StepStart, steps[len(steps)-1])
	}
}

func TestCanStopContainer(t *testing.T) {
	ok, _ := CanStopContainer(StateRunning)
	assert.True(t, ok)

	ok, reason := CanStopContainer(StateNotFound)
	assert.False(t, ok)
	assert.Equal(t, "already stopped", reason)

	ok, _ = CanStopContainer(StateStopped)
	assert.False(t, ok)
}

// =============================================================================
// Ordering Tests
// =============================================================================

func TestDeploymentOrder(t *testing.T) {
	tests := []struct {
		name string
		ctx  *Context
		want []domain.ServiceKind
	}{
		{
			"dev runs dependencies only",
			newTestContext(domain.CommandDev, "", "postgres", "keydb"),
			[]domain.ServiceKind{domain.ServicePostgres, domain.ServiceKeydb},
		},
		{
			"run appends the app",
			newTestContext(domain.CommandRun, "", "keydb", "postgres"),
			[]domain.ServiceKind{domain.ServiceKeydb, domain.ServicePostgres, domain.ServiceApp},
		},
		{
			"deploy adds the proxy before the app",
			newTestContext(domain.CommandDeploy, "", "postgres"),
			[]domain.ServiceKind{domain.ServicePostgres, domain.ServiceProxy, domain.ServiceApp},
		},
		{
			"deploy sub-command leaves the proxy alone",
			NewContext(domain.Command{Kind: domain.CommandDeploy, Sub: domain.SubCommandStop}, "", newTestContext(domain.CommandDeploy, "", "postgres").AppConfig(), ""),
			[]domain.ServiceKind{domain.ServicePostgres, domain.ServiceApp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ctx.DeploymentOrder())
		})
	}
}

func TestStopOrder(t *testing.T) {
	ctx := newTestContext(domain.CommandRun, "", "postgres", "keydb")

	assert.Equal(t, []domain.ServiceKind{domain.ServiceApp, domain.ServiceKeydb, domain.ServicePostgres}, ctx.StopOrder())
	assert.Equal(t, []domain.ServiceKind{domain.ServicePostgres, domain.ServiceKeydb, domain.ServiceApp}, ctx.DeploymentOrder())
}
