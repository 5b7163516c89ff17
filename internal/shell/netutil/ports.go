// Package netutil allocates free host ports for published container ports.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// DefaultAttempts bounds how often Allocate asks the OS before giving up.
const DefaultAttempts = 16

// ErrNoFreePort is returned when no unused port was found.
var ErrNoFreePort = errors.New("no free port available")

// PortAllocator hands out ephemeral TCP ports on the loopback interface.
// Ports handed out once are never returned again by the same allocator.
// Another process may still take a port before the container binds it.
type PortAllocator struct {
	host     string
	attempts int
	listen   func(network, address string) (net.Listener, error)

	mu     sync.Mutex
	issued map[int]bool
}

// NewPortAllocator creates an allocator probing 127.0.0.1.
func NewPortAllocator() *PortAllocator {
	return &PortAllocator{
		host:     "127.0.0.1",
		attempts: DefaultAttempts,
		listen:   net.Listen,
		issued:   make(map[int]bool),
	}
}

// Allocate returns a port that is currently free and was not issued before.
func (a *PortAllocator) Allocate() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i < a.attempts; i++ {
		port, err := a.probe()
		if err != nil {
			return 0, err
		}
		if a.issued[port] {
			continue
		}
		a.issued[port] = true
		return port, nil
	}
	return 0, fmt.Errorf("%w after %d attempts", ErrNoFreePort, a.attempts)
}

// probe binds port 0 and reports the port the OS picked.
func (a *PortAllocator) probe() (int, error) {
	l, err := a.listen("tcp", net.JoinHostPort(a.host, "0"))
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
