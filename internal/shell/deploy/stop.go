package deploy

import (
	"context"
	"fmt"

	"github.com/artpar/dploy/internal/core/deployment"
)

// Stop stops every active container, dependents first. Containers are kept so
// the next deploy can recreate them.
func (d *Deployer) Stop(ctx context.Context) error {
	for _, kind := range d.ctx.StopOrder() {
		name := d.ctx.ContainerNameOf(kind)
		logger := d.logger.With("service", kind, "container", name)

		state, err := d.inspectState(ctx, name)
		if err != nil {
			return err
		}
		if ok, reason := deployment.CanStopContainer(state); !ok {
			logger.Info(reason)
			continue
		}

		logger.Info("stopping container")
		if err := d.docker.StopContainer(ctx, name, nil); err != nil {
			return fmt.Errorf("stop %s: %w", name, err)
		}
	}
	return nil
}
