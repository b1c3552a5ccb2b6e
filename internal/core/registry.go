package core

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// instanceRegistry tracks every started instance so a terminating process
// can tear all of them down. Cleanup is idempotent, so a drain racing a
// caller's own Cleanup is harmless.
type instanceRegistry struct {
	mu          sync.Mutex
	instances   map[string]*Instance
	installOnce sync.Once
}

var defaultRegistry = &instanceRegistry{instances: make(map[string]*Instance)}

func (r *instanceRegistry) register(i *Instance) {
	r.installOnce.Do(r.installSignalHandler)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[i.id] = i
}

func (r *instanceRegistry) unregister(i *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, i.id)
}

func (r *instanceRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// drain cleans up all registered instances concurrently and waits for
// completion. Instance.Cleanup never fails, so drain cannot either.
func (r *instanceRegistry) drain() {
	r.mu.Lock()
	live := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		live = append(live, inst)
	}
	r.mu.Unlock()

	var g errgroup.Group
	for _, inst := range live {
		inst := inst
		g.Go(func() error {
			inst.Cleanup()
			return nil
		})
	}
	_ = g.Wait()
}

// installSignalHandler arranges for SIGINT/SIGTERM to drain the registry
// before the process dies, so no postgres servers or temp data directories
// are orphaned. After the drain the signal is re-raised with the default
// disposition, preserving the process's normal death.
func (r *instanceRegistry) installSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-ch
		Logger().Info("terminating, cleaning up instances", "signal", sig.String())
		r.drain()
		signal.Stop(ch)
		signal.Reset(sig)
		if p, err := os.FindProcess(os.Getpid()); err == nil {
			_ = p.Signal(sig)
		}
	}()
}

// CleanupAll tears down every live instance. It is what the signal handler
// runs, exposed for callers that want an explicit process-wide teardown.
func CleanupAll() {
	defaultRegistry.drain()
}
