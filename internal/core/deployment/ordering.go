package deployment

import "github.com/artpar/dploy/internal/core/domain"

// =============================================================================
// Service Ordering Functions
// =============================================================================

// DeploymentOrder lists the active service kinds in the order they are brought up.
//
// Declared dependencies come first in declaration order, then the proxy when the
// command runs one, then the app when the command builds one.
//
// Example:
//
//	// deploy with dependencies [postgres, keydb]
//	ctx.DeploymentOrder() // [postgres, keydb, proxy, app]
//
//	// dev with dependencies [postgres]
//	ctx.DeploymentOrder() // [postgres]
func (c *Context) DeploymentOrder() []domain.ServiceKind {
	order := append([]domain.ServiceKind{}, c.resolved.DependencyKinds()...)
	if c.ShouldCreateProxyService() {
		order = append(order, domain.ServiceProxy)
	}
	if c.ShouldCreateAppService() {
		order = append(order, domain.ServiceApp)
	}
	return order
}

// StopOrder is DeploymentOrder reversed, so dependents go down before what they use.
func (c *Context) StopOrder() []domain.ServiceKind {
	order := c.DeploymentOrder()
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
