package deployment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/artpar/dploy/internal/core/domain"
)

// =============================================================================
// Resource Naming Functions
// =============================================================================

// NetworkName is the shared bridge network all managed containers join.
const NetworkName = "dploy"

// pathSeparatorMarker replaces "/" in guest paths so nested paths map to a single
// host directory level.
const pathSeparatorMarker = "$__$"

// ContainerName builds the deterministic container name.
// Pattern: {prefix}_{suffix}_{namespace}
//
// Example:
//
//	ContainerName("demo", "postgres", "dev") // returns "demo_postgres_dev"
func ContainerName(prefix, suffix, namespace string) string {
	return fmt.Sprintf("%s_%s_%s", prefix, suffix, namespace)
}

// ContainerNameOf derives the container name of a service kind in this context.
//
// Singleton kinds use the shared singleton prefix instead of the app name. The App
// kind uses the app name as suffix. The fixed-exposure kind ignores the namespace.
//
// Example:
//
//	// app "demo", namespace "dev"
//	ctx.ContainerNameOf(domain.ServiceApp)   // "demo_demo_dev"
//	ctx.ContainerNameOf(domain.ServiceProxy) // "dploy-singleton_proxy_default"
func (c *Context) ContainerNameOf(kind domain.ServiceKind) string {
	prefix := c.AppName()
	if kind.IsSingleton() {
		prefix = domain.SingletonPrefix
	}

	suffix := kind.Suffix()
	if kind == domain.ServiceApp {
		suffix = c.AppName()
	}

	namespace := c.namespace
	if kind.HasFixedExposure() {
		namespace = domain.DefaultNamespace
	}

	return ContainerName(prefix, suffix, namespace)
}

// EscapeVolumePath turns a guest path into a single host path segment.
//
// Example:
//
//	EscapeVolumePath("/var/lib/data") // returns "$__$var$__$lib$__$data"
func EscapeVolumePath(innerPath string) string {
	p := strings.ReplaceAll(innerPath, `\`, "/")
	return strings.ReplaceAll(p, "/", pathSeparatorMarker)
}

// VolumePathOf returns the host directory backing innerPath of the kind's container.
// Pattern: {dataDir}/volumes/{container name}/{escaped inner path}
func (c *Context) VolumePathOf(kind domain.ServiceKind, innerPath string) string {
	return filepath.Join(c.dataDir, "volumes", c.ContainerNameOf(kind), EscapeVolumePath(innerPath))
}

// MountOf plans a bind mount of the kind's volume path onto innerPath.
func (c *Context) MountOf(kind domain.ServiceKind, innerPath string) MountPlan {
	return MountPlan{
		Source:           c.VolumePathOf(kind, innerPath),
		Target:           innerPath,
		CreateMountpoint: true,
	}
}

// ManualMount plans a bind mount of {dataDir}/{outerPath} onto innerPath.
func (c *Context) ManualMount(outerPath, innerPath string) MountPlan {
	return MountPlan{
		Source:           filepath.Join(c.dataDir, outerPath),
		Target:           innerPath,
		CreateMountpoint: true,
	}
}

// ImageRefOf returns the tag the locally built app image is stored under.
//
// Example:
//
//	// app "Demo", namespace "default"
//	ctx.ImageRefOf(domain.ServiceApp) // "demo_demo_default:latest"
func (c *Context) ImageRefOf(kind domain.ServiceKind) string {
	if kind != domain.ServiceApp {
		return kind.Image() + ":" + ImageTag
	}
	return domain.Slugify(c.ContainerNameOf(kind)) + ":" + ImageTag
}

// =============================================================================
// Labels
// =============================================================================

// Labels returns the ownership labels for a container of the given kind.
func (c *Context) Labels(kind domain.ServiceKind, runID string) map[string]string {
	labels := map[string]string{
		LabelManaged:   "true",
		LabelService:   string(kind),
		LabelNamespace: c.namespace,
		LabelRun:       runID,
	}
	if !kind.IsSingleton() {
		labels[LabelApp] = c.AppName()
	}
	return labels
}
