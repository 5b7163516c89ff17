package services

import (
	"fmt"
	"strconv"

	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/core/domain"
)

// Keydb is the KeyDB cache dependency.
type Keydb struct {
	ctx     *deployment.Context
	binding deployment.HostPortBinding
}

func (k *Keydb) Kind() domain.ServiceKind { return domain.ServiceKeydb }

func (k *Keydb) Bindings() []deployment.HostPortBinding {
	return []deployment.HostPortBinding{k.binding}
}

func keydbURL(host string, port int) string {
	return fmt.Sprintf("redis://%s:%d", host, port)
}

func (k *Keydb) ExportedVars() []deployment.EnvVar {
	return []deployment.EnvVar{
		{Name: "KEYDB_URL", Value: keydbURL(k.binding.InnerHost, k.binding.InnerPort)},
		{Name: "KEYDB_HOST", Value: k.binding.InnerHost},
		{Name: "KEYDB_PORT", Value: strconv.Itoa(k.binding.InnerPort)},
	}
}

func (k *Keydb) ContainerPlan(runID string, _ map[string]string) deployment.ContainerPlan {
	kind := k.Kind()
	return k.ctx.BuildContainerPlan(deployment.BuildContainerPlanParams{
		Kind:     kind,
		RunID:    runID,
		Image:    kind.Image(),
		Mounts:   []deployment.MountPlan{k.ctx.MountOf(kind, kind.DataPath())},
		Bindings: k.Bindings(),
	})
}

func (k *Keydb) ConnectionInfo() []string {
	if !k.binding.Exposed() {
		return nil
	}
	return []string{keydbURL(k.binding.HostHost, k.binding.HostPort)}
}
