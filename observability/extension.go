// Package observability provides a metrics extension for StreamPay that
// records lifecycle event counts and escrow volume.
package observability

import (
	"context"

	"github.com/xraph/streampay/plugin"
	"github.com/xraph/streampay/stream"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin           = (*MetricsExtension)(nil)
	_ plugin.OnStreamCreated  = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawal     = (*MetricsExtension)(nil)
	_ plugin.OnStreamCanceled = (*MetricsExtension)(nil)
	_ plugin.OnIndexOverflow  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics. Defined locally so hosts can bridge to
// whatever metrics system they run.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide lifecycle metrics.
type MetricsExtension struct {
	streamsCreated  Counter
	withdrawals     Counter
	cancellations   Counter
	indexOverflows  Counter
	escrowedAmount  Histogram
	withdrawnAmount Histogram
	refundedAmount  Histogram
}

// New creates a MetricsExtension using the provided factory.
func New(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		streamsCreated:  factory.Counter("streampay_streams_created_total"),
		withdrawals:     factory.Counter("streampay_withdrawals_total"),
		cancellations:   factory.Counter("streampay_cancellations_total"),
		indexOverflows:  factory.Counter("streampay_index_overflows_total"),
		escrowedAmount:  factory.Histogram("streampay_escrowed_amount"),
		withdrawnAmount: factory.Histogram("streampay_withdrawn_amount"),
		refundedAmount:  factory.Histogram("streampay_refunded_amount"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "metrics" }

// OnStreamCreated implements plugin.OnStreamCreated.
func (m *MetricsExtension) OnStreamCreated(_ context.Context, s interface{}) error {
	m.streamsCreated.Inc()
	if rec, ok := s.(*stream.Stream); ok {
		m.escrowedAmount.Observe(float64(rec.TotalAmount))
	}
	return nil
}

// OnWithdrawal implements plugin.OnWithdrawal.
func (m *MetricsExtension) OnWithdrawal(_ context.Context, _ interface{}, amount uint64) error {
	m.withdrawals.Inc()
	m.withdrawnAmount.Observe(float64(amount))
	return nil
}

// OnStreamCanceled implements plugin.OnStreamCanceled.
func (m *MetricsExtension) OnStreamCanceled(_ context.Context, _ interface{}, recipientReceived, senderRefunded uint64) error {
	m.cancellations.Inc()
	m.withdrawnAmount.Observe(float64(recipientReceived))
	m.refundedAmount.Observe(float64(senderRefunded))
	return nil
}

// OnIndexOverflow implements plugin.OnIndexOverflow.
func (m *MetricsExtension) OnIndexOverflow(context.Context, string, string, uint64) error {
	m.indexOverflows.Inc()
	return nil
}
