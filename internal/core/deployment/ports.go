package deployment

import (
	"fmt"
	"net"
	"strconv"

	"github.com/docker/go-connections/nat"

	"github.com/artpar/dploy/internal/core/domain"
)

// LoopbackHost is the host side of every published dependency port.
const LoopbackHost = "127.0.0.1"

// =============================================================================
// Host Port Binding
// =============================================================================

// HostPortBinding describes how a service port is reached from the app (the
// inner view) and, when published, from the host. HostPort zero means the port
// is not published.
type HostPortBinding struct {
	InnerHost    string
	InnerPort    int
	HostHost     string
	HostPort     int
	InternalPort int
}

// PortAllocator hands out free host ports. The shell supplies the implementation.
type PortAllocator interface {
	Allocate() (int, error)
}

// NewHostPortBinding computes the binding of one service port for an exposure policy.
//
//	| exposure                | host port | inner host     | inner port    |
//	| local-dependencies-only | allocated | 127.0.0.1      | host port     |
//	| local-full-stack        | allocated | container name | internal port |
//	| remote                  | none      | container name | internal port |
//
// Call once per service and run, then share the value.
func NewHostPortBinding(containerName string, internalPort int, exposure domain.Exposure, alloc PortAllocator) (HostPortBinding, error) {
	b := HostPortBinding{
		InnerHost:    containerName,
		InnerPort:    internalPort,
		HostHost:     LoopbackHost,
		InternalPort: internalPort,
	}
	if !exposure.PublishesHostPorts() {
		return b, nil
	}

	hostPort, err := alloc.Allocate()
	if err != nil {
		return HostPortBinding{}, fmt.Errorf("allocate host port for %s: %w", containerName, err)
	}
	b.HostPort = hostPort

	if exposure == domain.ExposureLocalDependencies {
		b.InnerHost = LoopbackHost
		b.InnerPort = hostPort
	}
	return b, nil
}

// ManualHostPortBinding builds a binding with a fixed host port.
func ManualHostPortBinding(hostPort int, hostHost string, innerPort int, innerHost string) HostPortBinding {
	return HostPortBinding{
		InnerHost:    innerHost,
		InnerPort:    innerPort,
		HostHost:     hostHost,
		HostPort:     hostPort,
		InternalPort: innerPort,
	}
}

// Exposed reports whether the binding publishes a host port.
func (b HostPortBinding) Exposed() bool {
	return b.HostPort != 0
}

// HostAddress is host:port on the host side, or empty when not published.
func (b HostPortBinding) HostAddress() string {
	if !b.Exposed() {
		return ""
	}
	return net.JoinHostPort(b.HostHost, strconv.Itoa(b.HostPort))
}

// =============================================================================
// Docker Port Maps
// =============================================================================

func internalPort(b HostPortBinding) nat.Port {
	return nat.Port(fmt.Sprintf("%d/tcp", b.InternalPort))
}

// ToPortBindings folds bindings into the runtime's port map. Bindings without a
// host port contribute nothing.
//
// Example:
//
//	ToPortBindings([]HostPortBinding{{InternalPort: 5432, HostHost: "127.0.0.1", HostPort: 49153}})
//	// Result: nat.PortMap{"5432/tcp": {{HostIP: "127.0.0.1", HostPort: "49153"}}}
func ToPortBindings(bindings []HostPortBinding) nat.PortMap {
	m := nat.PortMap{}
	for _, b := range bindings {
		if !b.Exposed() {
			continue
		}
		p := internalPort(b)
		m[p] = append(m[p], nat.PortBinding{
			HostIP:   b.HostHost,
			HostPort: strconv.Itoa(b.HostPort),
		})
	}
	return m
}

// ExposedPorts returns the container ports the bindings refer to.
func ExposedPorts(bindings []HostPortBinding) nat.PortSet {
	set := nat.PortSet{}
	for _, b := range bindings {
		set[internalPort(b)] = struct{}{}
	}
	return set
}
