package deploy

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/core/domain"
	"github.com/artpar/dploy/internal/shell/docker"
)

// =============================================================================
// Dependency Sequencer
// =============================================================================

// Deploy brings up the whole deployment, failing fast:
//  1. load the env file
//  2. regenerate the env file when the app runs on the host or locally
//  3. ensure the shared network when containers talk by name
//  4. reconcile the dependencies in declaration order, then the proxy
//  5. reconcile the app with a locally built image
//  6. run the post-startup hooks concurrently
//  7. print connection info
func (d *Deployer) Deploy(ctx context.Context) error {
	if d.set == nil {
		return ErrNoServices
	}
	d.logger.Info("deploying",
		"app", d.ctx.AppName(),
		"namespace", d.ctx.Namespace(),
		"command", d.ctx.Command().Kind,
		"run_id", d.runID,
	)

	existing, loaded := d.loadEnv()

	if d.ctx.ShouldGenerateEnvFile() {
		if _, err := d.MaterializeEnv(existing, loaded); err != nil {
			return err
		}
	}

	if d.ctx.ShouldCreateNetwork() {
		if err := d.ensureNetwork(ctx); err != nil {
			return err
		}
	}

	appEnv := d.appEnvironment(existing)
	for _, svc := range d.set.Ordered() {
		if err := d.Reconcile(ctx, svc.ContainerPlan(d.runID, appEnv)); err != nil {
			return fmt.Errorf("deploy %s: %w", svc.Kind(), err)
		}
	}

	if err := d.runHooks(ctx, d.set.Ordered()); err != nil {
		return err
	}

	if d.ctx.ShouldPrintConnectionInfo() {
		d.printConnectionInfo()
	}

	d.logger.Info("deployment complete", "app", d.ctx.AppName(), "services", len(d.set.Ordered()))
	return nil
}

// ReconcileApp rebuilds and recreates only the app container. The env file is
// read again so edits made since the last deploy take effect.
func (d *Deployer) ReconcileApp(ctx context.Context) error {
	if d.set == nil {
		return ErrNoServices
	}
	app, ok := d.set.Get(domain.ServiceApp)
	if !ok {
		return fmt.Errorf("%s: %w", domain.ServiceApp, ErrServiceNotActive)
	}

	existing, _ := d.loadEnv()
	return d.Reconcile(ctx, app.ContainerPlan(d.runID, d.appEnvironment(existing)))
}

func (d *Deployer) ensureNetwork(ctx context.Context) error {
	id, err := d.docker.EnsureNetwork(ctx, docker.NetworkSpec{
		Name:   deployment.NetworkName,
		Labels: map[string]string{deployment.LabelManaged: "true"},
	})
	if err != nil {
		return fmt.Errorf("ensure network %s: %w", deployment.NetworkName, err)
	}
	d.logger.Debug("network ready", "network", deployment.NetworkName, "network_id", id)
	return nil
}

// printConnectionInfo lists how each service is reached from the host.
func (d *Deployer) printConnectionInfo() {
	w := tabwriter.NewWriter(d.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tCONTAINER\tADDRESS")
	for _, svc := range d.set.Ordered() {
		for _, info := range svc.ConnectionInfo() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", svc.Kind(), d.ctx.ContainerNameOf(svc.Kind()), info)
		}
	}
	w.Flush()
}
