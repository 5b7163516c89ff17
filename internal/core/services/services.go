// Package services defines the concrete members of a deployment: the app and
// the dependency containers it may declare.
//
// A Set is built once per run. Building it allocates host ports, so every
// consumer of a service reads the same bindings.
package services

import (
	"fmt"

	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/core/domain"
)

// Service is one container of the deployment.
type Service interface {
	Kind() domain.ServiceKind

	// Bindings are the port bindings computed when the set was built.
	Bindings() []deployment.HostPortBinding

	// ExportedVars are the connection variables the service offers the app,
	// in the binding view of the active command.
	ExportedVars() []deployment.EnvVar

	// ContainerPlan plans the container for one reconcile attempt. appEnv holds
	// app-owned variables and is only used by the app.
	ContainerPlan(runID string, appEnv map[string]string) deployment.ContainerPlan

	// ConnectionInfo describes how to reach the service from the host.
	ConnectionInfo() []string
}

// =============================================================================
// Service Set
// =============================================================================

// Set holds the active services of a command in deployment order.
type Set struct {
	ctx      *deployment.Context
	ordered  []Service
	services map[domain.ServiceKind]Service
}

// New builds every active service of ctx. Host ports are allocated here.
func New(ctx *deployment.Context, alloc deployment.PortAllocator) (*Set, error) {
	s := &Set{
		ctx:      ctx,
		services: make(map[domain.ServiceKind]Service),
	}

	for _, kind := range ctx.DeploymentOrder() {
		svc, err := s.build(kind, alloc)
		if err != nil {
			return nil, err
		}
		s.ordered = append(s.ordered, svc)
		s.services[kind] = svc
	}
	return s, nil
}

func (s *Set) build(kind domain.ServiceKind, alloc deployment.PortAllocator) (Service, error) {
	switch kind {
	case domain.ServicePostgres:
		b, err := s.dependencyBinding(kind, alloc)
		if err != nil {
			return nil, err
		}
		dep, _ := s.ctx.Config().Dependency(kind)
		return &Postgres{ctx: s.ctx, binding: b, creds: dep}, nil

	case domain.ServiceKeydb:
		b, err := s.dependencyBinding(kind, alloc)
		if err != nil {
			return nil, err
		}
		return &Keydb{ctx: s.ctx, binding: b}, nil

	case domain.ServiceProxy:
		return newProxy(s.ctx), nil

	case domain.ServiceApp:
		exposure := domain.ExposureRemote
		if s.ctx.ShouldExposeAppToHost() {
			exposure = s.ctx.Exposure()
		}
		b, err := deployment.NewHostPortBinding(s.ctx.ContainerNameOf(kind), s.ctx.Config().Port, exposure, alloc)
		if err != nil {
			return nil, err
		}
		return &App{ctx: s.ctx, binding: b, set: s}, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownServiceKind, kind)
	}
}

func (s *Set) dependencyBinding(kind domain.ServiceKind, alloc deployment.PortAllocator) (deployment.HostPortBinding, error) {
	exposure := s.ctx.Exposure()
	if !s.ctx.ShouldExposeToHost() {
		exposure = domain.ExposureRemote
	}
	return deployment.NewHostPortBinding(s.ctx.ContainerNameOf(kind), kind.InternalPort(), exposure, alloc)
}

// Context returns the deployment context the set was built from.
func (s *Set) Context() *deployment.Context { return s.ctx }

// Get returns the service of the given kind if it is active.
func (s *Set) Get(kind domain.ServiceKind) (Service, bool) {
	svc, ok := s.services[kind]
	return svc, ok
}

// Ordered returns the active services in deployment order.
func (s *Set) Ordered() []Service {
	return append([]Service(nil), s.ordered...)
}

// Dependencies returns the declared dependencies in declaration order.
func (s *Set) Dependencies() []Service {
	var deps []Service
	for _, svc := range s.ordered {
		if svc.Kind().IsDependency() {
			deps = append(deps, svc)
		}
	}
	return deps
}

// ServiceVars concatenates the exported variables of every dependency.
func (s *Set) ServiceVars() []deployment.EnvVar {
	var vars []deployment.EnvVar
	for _, svc := range s.Dependencies() {
		vars = append(vars, svc.ExportedVars()...)
	}
	return vars
}
