package deploy

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/shell/docker"
)

// =============================================================================
// Lifecycle Reconciler
// =============================================================================

// Reconcile brings the container described by plan to a freshly created,
// running state. The image is pulled or built first; an existing container
// is stopped when running and removed before the new one is created.
//
// Any runtime error aborts the reconcile. Nothing is retried.
func (d *Deployer) Reconcile(ctx context.Context, plan deployment.ContainerPlan) error {
	logger := d.logger.With("container", plan.Name, "service", plan.Kind, "image", plan.Image)

	if err := d.prepareImage(ctx, plan); err != nil {
		return err
	}

	state, err := d.inspectState(ctx, plan.Name)
	if err != nil {
		return err
	}
	logger.Debug("inspected container", "state", state)

	for _, step := range deployment.PlanReconcile(state) {
		switch step {
		case deployment.StepStop:
			logger.Info("stopping container")
			if err := d.docker.StopContainer(ctx, plan.Name, nil); err != nil {
				return fmt.Errorf("stop %s: %w", plan.Name, err)
			}
		case deployment.StepRemove:
			logger.Debug("removing container")
			if err := d.docker.RemoveContainer(ctx, plan.Name, docker.RemoveOptions{}); err != nil {
				return fmt.Errorf("remove %s: %w", plan.Name, err)
			}
		case deployment.StepCreate:
			logger.Debug("creating container")
			if _, err := d.docker.CreateContainer(ctx, toContainerSpec(plan)); err != nil {
				return fmt.Errorf("create %s: %w", plan.Name, err)
			}
		case deployment.StepStart:
			if err := d.docker.StartContainer(ctx, plan.Name); err != nil {
				return fmt.Errorf("start %s: %w", plan.Name, err)
			}
			logger.Info("container started")
		}
	}
	return nil
}

// prepareImage builds the image locally or pulls the latest one.
func (d *Deployer) prepareImage(ctx context.Context, plan deployment.ContainerPlan) error {
	if plan.Build != nil {
		d.logger.Info("building image", "image", plan.Image, "context", plan.Build.ContextDir)
		err := d.docker.BuildImage(ctx, docker.BuildSpec{
			ContextDir: plan.Build.ContextDir,
			Dockerfile: plan.Build.Dockerfile,
			Tag:        plan.Image,
			Labels:     map[string]string{deployment.LabelManaged: "true"},
			Progress:   d.progress,
		})
		if err != nil {
			return fmt.Errorf("build %s: %w", plan.Image, err)
		}
		return nil
	}

	d.logger.Info("pulling image", "image", plan.Image)
	if err := d.docker.PullImage(ctx, plan.Image, docker.PullOptions{Progress: d.progress}); err != nil {
		return fmt.Errorf("pull %s: %w", plan.Image, err)
	}
	return nil
}

// inspectState classifies a container by name. Not found is a state, not an error.
func (d *Deployer) inspectState(ctx context.Context, name string) (deployment.ContainerState, error) {
	info, err := d.docker.InspectContainer(ctx, name)
	if err != nil {
		if docker.IsNotFound(err) {
			return deployment.StateNotFound, nil
		}
		return deployment.StateNotFound, fmt.Errorf("inspect %s: %w", name, err)
	}
	if info.Running {
		return deployment.StateRunning, nil
	}
	return deployment.StateStopped, nil
}

// toContainerSpec converts a pure container plan into a runtime spec.
func toContainerSpec(plan deployment.ContainerPlan) docker.ContainerSpec {
	spec := docker.ContainerSpec{
		Name:          plan.Name,
		Image:         plan.Image,
		Command:       plan.Command,
		Env:           plan.EnvList(),
		Labels:        plan.Labels,
		ExposedPorts:  deployment.ExposedPorts(plan.Ports),
		PortBindings:  deployment.ToPortBindings(plan.Ports),
		Network:       plan.Network,
		RestartPolicy: docker.RestartPolicy{Name: plan.RestartPolicy.Name},
	}

	for _, m := range plan.Mounts {
		spec.Mounts = append(spec.Mounts, docker.VolumeMount{
			Source:           filepath.Clean(m.Source),
			Target:           m.Target,
			ReadOnly:         m.ReadOnly,
			CreateMountpoint: m.CreateMountpoint,
		})
	}
	return spec
}
