// Package docker provides a Docker client for container lifecycle management.
package docker

import (
	"context"
	"io"
	"time"

	"github.com/docker/go-connections/nat"
)

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec describes how to create a container.
type ContainerSpec struct {
	Name          string
	Image         string
	Command       []string
	Env           []string // NAME=VALUE
	Labels        map[string]string
	ExposedPorts  nat.PortSet
	PortBindings  nat.PortMap
	Mounts        []VolumeMount
	Network       string
	RestartPolicy RestartPolicy
}

// VolumeMount defines a bind mount of a host path.
type VolumeMount struct {
	Source           string // Host path
	Target           string // Container path
	ReadOnly         bool
	CreateMountpoint bool // Create Source on the host when missing
}

// RestartPolicy defines the container restart policy.
type RestartPolicy struct {
	Name string // "no", "always", "on-failure", "unless-stopped"
}

// =============================================================================
// Container Info
// =============================================================================

// ContainerInfo contains information about a container.
type ContainerInfo struct {
	ID      string
	Name    string
	Running bool
	Labels  map[string]string
}

// =============================================================================
// Image Types
// =============================================================================

// BuildSpec defines a local image build.
type BuildSpec struct {
	ContextDir string // Directory sent to the daemon, filtered by .dockerignore
	Dockerfile string // Relative to the working directory, as with `docker build -f`
	Tag        string
	Labels     map[string]string
	Progress   io.Writer // Receives the build output; nil discards it
}

// PullOptions defines options for pulling images.
type PullOptions struct {
	Progress io.Writer // Receives pull progress; nil discards it
}

// =============================================================================
// Network Types
// =============================================================================

// NetworkSpec describes how to create a network.
type NetworkSpec struct {
	Name   string
	Driver string // "bridge" when empty
	Labels map[string]string
}

// =============================================================================
// Options and Results
// =============================================================================

// RemoveOptions defines options for removing containers.
type RemoveOptions struct {
	Force         bool
	RemoveVolumes bool
}

// LogOptions defines options for container logs.
type LogOptions struct {
	Follow bool
	Tail   string // "all" or number
}

// ExecResult is the outcome of a command run inside a container.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the Docker client interface.
//
// Every method blocks until the daemon answers. Not-found conditions are
// reported as errors wrapping ErrContainerNotFound.
type Client interface {
	// Container operations
	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error
	RemoveContainer(ctx context.Context, containerID string, opts RemoveOptions) error
	InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error)
	ContainerLogs(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error)
	Exec(ctx context.Context, containerID string, cmd []string) (*ExecResult, error)

	// Network operations
	EnsureNetwork(ctx context.Context, spec NetworkSpec) (networkID string, err error)

	// Image operations
	PullImage(ctx context.Context, image string, opts PullOptions) error
	BuildImage(ctx context.Context, spec BuildSpec) error

	// Health operations
	Ping(ctx context.Context) error
	Close() error
}
