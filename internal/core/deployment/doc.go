// Package deployment provides pure functions for deployment planning.
//
// It holds the naming and addressing model of a deployment and the planning
// steps the shell executes. Nothing here performs I/O; port allocation is
// injected through PortAllocator.
//
// # Functions
//
//   - Context: the immutable per-process aggregate and its command predicates
//   - Naming: container names, volume paths, mounts, labels (ContainerNameOf, VolumePathOf)
//   - Ports: host port bindings and Docker port maps (NewHostPortBinding, ToPortBindings)
//   - Variables: env file merge and rendering (MergeEnvironment, SubstituteVariables)
//   - Planner: reconcile steps from an observed container state (PlanReconcile)
//   - Ordering: the order services are brought up and down (DeploymentOrder, StopOrder)
//   - Container: container plans for the runtime (BuildContainerPlan)
//
// # Usage
//
// The imperative shell (internal/shell/deploy) uses these functions to plan each
// container, then executes the plans through internal/shell/docker.
//
//	ctx := deployment.NewContext(cmd, namespace, cfg, dataDir)
//	for _, kind := range ctx.DeploymentOrder() {
//	    name := ctx.ContainerNameOf(kind)
//	    // inspect, then run deployment.PlanReconcile(state)
//	}
package deployment
