package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// maxPortRetries is the maximum number of attempts to find a port not already
// in the registry. This guards against pathological cases.
const maxPortRetries = 20

// PortRegistry tracks ports currently reserved by this process to prevent
// the TOCTOU race where two concurrent AllocatePort calls receive the same
// port from the kernel (because the first caller closed its listener before
// the second caller opened theirs).
//
// The postgres server cannot bind port 0 itself, so instances configured
// with an automatic port resolve it here before the server is spawned. One
// registry is shared by all instances in the process.
type PortRegistry struct {
	mu    sync.Mutex
	ports map[int]struct{}
	log   *slog.Logger
}

// NewPortRegistry creates a new PortRegistry ready for use.
// If logger is nil, slog.Default() is used as a fallback.
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: make(map[int]struct{}),
		log:   logger,
	}
}

// reserve attempts to register a port in the registry.
// Returns true if the port was successfully reserved, false if already taken.
func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Reserve registers a fixed, caller-chosen port so automatic allocations
// never hand out the same port to another instance. Returns false if the
// port is already reserved by this process.
func (r *PortRegistry) Reserve(port int) bool {
	return r.reserve(port)
}

// Release removes a port from the registry, allowing it to be reused.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// AllocatePort asks the kernel for a free TCP port on the loopback interface
// and registers it so concurrent callers cannot receive the same port. The
// listener is closed before returning, leaving a window where another
// process (not another caller in this process) could grab the port; the
// registry closes the in-process half of that race. Callers must call
// Release when the port is no longer needed.
func (r *PortRegistry) AllocatePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolve tcp address: %w", err)
	}

	for i := 0; i < maxPortRetries; i++ {
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return 0, fmt.Errorf("listen on tcp address: %w", err)
		}
		tcpAddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			_ = l.Close()
			return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
		}
		if !r.reserve(tcpAddr.Port) {
			// Port already in registry, close and retry to get a different one.
			r.log.Debug("port already in registry, retrying", "port", tcpAddr.Port)
			_ = l.Close()
			continue
		}
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close listener after port allocation", "port", tcpAddr.Port, "error", closeErr)
		}
		return tcpAddr.Port, nil
	}
	return 0, fmt.Errorf("allocate unique port: exhausted %d attempts", maxPortRetries)
}
