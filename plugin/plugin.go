// Package plugin provides an extensible plugin system for StreamPay.
// Plugins can hook into stream lifecycle events to extend functionality.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated is called after a stream is created and funded.
type OnStreamCreated interface {
	Plugin
	OnStreamCreated(ctx context.Context, s interface{}) error
}

// OnWithdrawal is called after a recipient withdraws vested funds.
type OnWithdrawal interface {
	Plugin
	OnWithdrawal(ctx context.Context, s interface{}, amount uint64) error
}

// OnStreamCanceled is called after a sender cancels a stream.
type OnStreamCanceled interface {
	Plugin
	OnStreamCanceled(ctx context.Context, s interface{}, recipientReceived, senderRefunded uint64) error
}

// ──────────────────────────────────────────────────
// Index hooks
// ──────────────────────────────────────────────────

// OnIndexOverflow is called when a reverse-index append is dropped because
// the principal's list is at capacity. The stream record itself stays
// retrievable by id; only the per-principal listing loses the entry.
type OnIndexOverflow interface {
	Plugin
	OnIndexOverflow(ctx context.Context, index, principal string, streamID uint64) error
}
