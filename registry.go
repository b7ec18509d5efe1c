package harness

import (
	"context"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bearlyai/agentharness/backend"
)

// Registry is the name-keyed, insertion-ordered index of backend adapters
// spec §4.6 describes. No concurrent mutation is assumed: callers must
// sequence Register calls before any Get/CheckAllInstallStatus call.
//
// Grounded on agentrun/engine.go's Engine.Validate contract (the
// executable-lookup probe CheckAllInstallStatus performs per adapter) and
// enriched with golang.org/x/sync/errgroup for the parallel fan-out spec
// §4.6 calls for.
type Registry struct {
	order []string
	byID  map[string]backend.Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]backend.Adapter)}
}

// Register adds adapter under its own Name(). Registering a name twice
// returns a *HarnessError with code ErrorUnknown whose message starts with
// ErrBackendExists's text; it does not wrap the sentinel, so errors.Is
// does not match it.
func (r *Registry) Register(adapter backend.Adapter) error {
	name := adapter.Name()
	if _, exists := r.byID[name]; exists {
		return NewHarnessError(ErrorUnknown, ErrBackendExists.Error()+": "+name)
	}
	r.byID[name] = adapter
	r.order = append(r.order, name)
	return nil
}

// Get returns the adapter registered under name, or a *HarnessError with
// code ErrorUnknown whose message starts with ErrBackendNotFound's text.
func (r *Registry) Get(name string) (backend.Adapter, error) {
	a, ok := r.byID[name]
	if !ok {
		return nil, NewHarnessError(ErrorUnknown, ErrBackendNotFound.Error()+": "+name)
	}
	return a, nil
}

// Names returns registered backend ids in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// InstallStatus reports whether a backend's executable can be resolved.
type InstallStatus struct {
	Installed bool
	Err       error
}

// CheckAllInstallStatus fans out an executable-lookup probe across every
// registered adapter in parallel, per spec §4.6. It assumes each Adapter
// also exposes a Binary() string (the executable name/path to resolve);
// adapters that don't implement that are reported as installed (lookup
// skipped) since generic executable discovery is explicitly out of scope
// for the core (spec §1).
func (r *Registry) CheckAllInstallStatus(ctx context.Context) map[string]InstallStatus {
	results := make(map[string]InstallStatus, len(r.byID))
	var resultsMu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	for _, name := range r.order {
		name := name
		adapter := r.byID[name]
		g.Go(func() error {
			status := probeInstall(adapter)
			resultsMu.Lock()
			results[name] = status
			resultsMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

type binaryNamer interface {
	Binary() string
}

func probeInstall(adapter backend.Adapter) InstallStatus {
	bn, ok := adapter.(binaryNamer)
	if !ok {
		return InstallStatus{Installed: true}
	}
	if _, err := exec.LookPath(bn.Binary()); err != nil {
		return InstallStatus{Installed: false, Err: err}
	}
	return InstallStatus{Installed: true}
}
