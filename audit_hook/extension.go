// Package audithook bridges StreamPay lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import any
// concrete audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/streampay/id"
	"github.com/xraph/streampay/plugin"
	"github.com/xraph/streampay/stream"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Extension)(nil)
	_ plugin.OnStreamCreated  = (*Extension)(nil)
	_ plugin.OnWithdrawal     = (*Extension)(nil)
	_ plugin.OnStreamCanceled = (*Extension)(nil)
	_ plugin.OnIndexOverflow  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so callers can bridge to any trail (database, log
// shipper, chain event) without this package importing it.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is an audit trail entry for one ledger event.
type AuditEvent struct {
	ID         id.ID          `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges StreamPay lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided
// Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnStreamCreated implements plugin.OnStreamCreated.
func (e *Extension) OnStreamCreated(ctx context.Context, s interface{}) error {
	rec, ok := s.(*stream.Stream)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionStreamCreated, SeverityInfo, OutcomeSuccess,
		ResourceStream, fmt.Sprintf("%d", rec.ID), CategoryEscrow,
		"transfer_ref", id.NewTransferID().String(),
		"sender", rec.Sender.String(),
		"recipient", rec.Recipient.String(),
		"total_amount", rec.TotalAmount,
		"start_block", rec.StartBlock,
		"end_block", rec.EndBlock,
	)
}

// OnWithdrawal implements plugin.OnWithdrawal.
func (e *Extension) OnWithdrawal(ctx context.Context, s interface{}, amount uint64) error {
	rec, ok := s.(*stream.Stream)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionStreamWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceStream, fmt.Sprintf("%d", rec.ID), CategoryEscrow,
		"transfer_ref", id.NewTransferID().String(),
		"recipient", rec.Recipient.String(),
		"amount", amount,
		"withdrawn", rec.Withdrawn,
	)
}

// OnStreamCanceled implements plugin.OnStreamCanceled.
func (e *Extension) OnStreamCanceled(ctx context.Context, s interface{}, recipientReceived, senderRefunded uint64) error {
	rec, ok := s.(*stream.Stream)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionStreamCanceled, SeverityWarning, OutcomeSuccess,
		ResourceStream, fmt.Sprintf("%d", rec.ID), CategoryEscrow,
		"transfer_ref", id.NewTransferID().String(),
		"sender", rec.Sender.String(),
		"recipient_received", recipientReceived,
		"sender_refunded", senderRefunded,
	)
}

// OnIndexOverflow implements plugin.OnIndexOverflow.
func (e *Extension) OnIndexOverflow(ctx context.Context, index, principal string, streamID uint64) error {
	return e.record(ctx, ActionIndexOverflow, SeverityWarning, OutcomePartial,
		ResourceIndex, index, CategoryStore,
		"principal", principal,
		"stream_id", streamID,
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		ID:         id.NewAuditEventID(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
