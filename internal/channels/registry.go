package channels

import (
	"context"
	"log/slog"
	"sync"
)

// Registry is the Platform Registry (§4.I): a name→adapter table built
// from platform_connect frames, with supersede-and-shutdown semantics.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	adapters  map[string]Adapter
	onInbound InboundFunc
}

// NewRegistry builds an empty Registry. onInbound is wired into every
// adapter constructed here, so any adapter with its own delivery
// mechanism routes messages back into the gateway uniformly.
func NewRegistry(onInbound InboundFunc) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		adapters:  make(map[string]Adapter),
		onInbound: onInbound,
	}
}

// RegisterFactory declares a platform name as known, so Connect for
// that name constructs a real adapter instead of falling back to the
// generic no-op.
func (r *Registry) RegisterFactory(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Connect handles a platform_connect frame (§4.I):
//  1. look up platform by name
//  2. instantiate the matching adapter with credentials/config
//  3. register it, superseding (and shutting down) any prior adapter
//     under the same name
//  4. unknown names get a generic no-op adapter — every declared
//     platform stays reachable.
//
// A platform_connect frame with the credentials key entirely absent
// (nil map, distinct from an explicitly empty one) never reaches a real
// factory: it gets the generic no-op adapter instead, so an omitted
// credentials field can never yield a live credentialed session.
func (r *Registry) Connect(ctx context.Context, platform string, credentials, cfg map[string]any) (Adapter, error) {
	r.mu.Lock()
	factory, known := r.factories[platform]
	r.mu.Unlock()

	var adapter Adapter
	var err error
	switch {
	case !known:
		slog.Warn("channels.unknown_platform", "platform", platform)
		adapter = NewGenericAdapter(platform)
	case credentials == nil:
		slog.Warn("channels.credentials_absent", "platform", platform)
		adapter = NewGenericAdapter(platform)
	default:
		adapter, err = factory(credentials, cfg, r.onInbound)
		if err != nil {
			slog.Warn("channels.connect_failed", "platform", platform, "error", err)
			adapter = NewGenericAdapter(platform)
		}
	}

	if err := adapter.Initialize(ctx); err != nil {
		slog.Warn("channels.initialize_failed", "platform", platform, "error", err)
	}

	r.mu.Lock()
	old, hadOld := r.adapters[platform]
	r.adapters[platform] = adapter
	r.mu.Unlock()

	if hadOld && old != nil {
		_ = old.Shutdown(ctx)
	}

	return adapter, nil
}

// Get returns the currently-registered adapter for platform, if any.
func (r *Registry) Get(platform string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[platform]
	return a, ok
}

// ShutdownAll shuts down every registered adapter, swallowing errors.
func (r *Registry) ShutdownAll(ctx context.Context) {
	r.mu.Lock()
	adapters := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.adapters = make(map[string]Adapter)
	r.mu.Unlock()

	for _, a := range adapters {
		_ = a.Shutdown(ctx)
	}
}
