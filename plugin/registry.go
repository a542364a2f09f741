package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit           []OnInit
	onShutdown       []OnShutdown
	onStreamCreated  []OnStreamCreated
	onWithdrawal     []OnWithdrawal
	onStreamCanceled []OnStreamCanceled
	onIndexOverflow  []OnIndexOverflow
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnStreamCreated); ok {
		r.onStreamCreated = append(r.onStreamCreated, v)
	}
	if v, ok := p.(OnWithdrawal); ok {
		r.onWithdrawal = append(r.onWithdrawal, v)
	}
	if v, ok := p.(OnStreamCanceled); ok {
		r.onStreamCanceled = append(r.onStreamCanceled, v)
	}
	if v, ok := p.(OnIndexOverflow); ok {
		r.onIndexOverflow = append(r.onIndexOverflow, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnStreamCreated)(nil)).Elem(), "OnStreamCreated")
	checkInterface(reflect.TypeOf((*OnWithdrawal)(nil)).Elem(), "OnWithdrawal")
	checkInterface(reflect.TypeOf((*OnStreamCanceled)(nil)).Elem(), "OnStreamCanceled")
	checkInterface(reflect.TypeOf((*OnIndexOverflow)(nil)).Elem(), "OnIndexOverflow")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamCreated emits a stream created event.
func (r *Registry) EmitStreamCreated(ctx context.Context, s interface{}) {
	r.mu.RLock()
	plugins := r.onStreamCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamCreated(ctx, s)
		}); err != nil {
			r.logger.Warn("plugin OnStreamCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitWithdrawal emits a withdrawal event.
func (r *Registry) EmitWithdrawal(ctx context.Context, s interface{}, amount uint64) {
	r.mu.RLock()
	plugins := r.onWithdrawal
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWithdrawal(ctx, s, amount)
		}); err != nil {
			r.logger.Warn("plugin OnWithdrawal failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamCanceled emits a stream canceled event.
func (r *Registry) EmitStreamCanceled(ctx context.Context, s interface{}, recipientReceived, senderRefunded uint64) {
	r.mu.RLock()
	plugins := r.onStreamCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamCanceled(ctx, s, recipientReceived, senderRefunded)
		}); err != nil {
			r.logger.Warn("plugin OnStreamCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitIndexOverflow emits an index overflow event.
func (r *Registry) EmitIndexOverflow(ctx context.Context, index, principal string, streamID uint64) {
	r.mu.RLock()
	plugins := r.onIndexOverflow
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnIndexOverflow(ctx, index, principal, streamID)
		}); err != nil {
			r.logger.Warn("plugin OnIndexOverflow failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the escrow pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
