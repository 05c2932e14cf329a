package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the dispatch instrumentation for one looper. All methods
// are safe on a nil receiver, so callers can pass a nil registry to turn
// instrumentation off.
type Registry struct {
	meter metric.Meter

	EnqueuedMessages   metric.Int64Counter
	DispatchedMessages metric.Int64Counter
	DispatchBatchSize  metric.Int64Histogram
	AutoDispatchRuns   metric.Int64Counter
	QueueDepth         metric.Int64ObservableGauge

	// State for observable metrics
	mu         sync.RWMutex
	queueDepth int64
}

// NewRegistry creates a metrics registry on the named meter.
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	var err error
	r.EnqueuedMessages, err = r.meter.Int64Counter(
		"dispatch.messages.enqueued_total",
		metric.WithDescription("Total number of messages enqueued"),
	)
	if err != nil {
		return nil, err
	}

	r.DispatchedMessages, err = r.meter.Int64Counter(
		"dispatch.messages.dispatched_total",
		metric.WithDescription("Total number of messages dispatched"),
	)
	if err != nil {
		return nil, err
	}

	r.DispatchBatchSize, err = r.meter.Int64Histogram(
		"dispatch.batch_size",
		metric.WithDescription("Number of messages delivered per drain"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 50, 100, 500),
	)
	if err != nil {
		return nil, err
	}

	r.AutoDispatchRuns, err = r.meter.Int64Counter(
		"dispatch.auto_sessions_total",
		metric.WithDescription("Total number of completed auto-dispatch sessions"),
	)
	if err != nil {
		return nil, err
	}

	r.QueueDepth, err = r.meter.Int64ObservableGauge(
		"dispatch.queue_depth",
		metric.WithDescription("Current number of pending messages"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.queueDepth)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// RecordEnqueue records one enqueued message and the resulting depth.
func (r *Registry) RecordEnqueue(depth int64) {
	if r == nil {
		return
	}
	r.EnqueuedMessages.Add(context.Background(), 1)
	r.setQueueDepth(depth)
}

// RecordDispatch records a drain that delivered batch messages, leaving
// depth messages still pending.
func (r *Registry) RecordDispatch(batch int, depth int64) {
	if r == nil {
		return
	}
	ctx := context.Background()
	r.DispatchedMessages.Add(ctx, int64(batch))
	r.DispatchBatchSize.Record(ctx, int64(batch))
	r.setQueueDepth(depth)
}

// RecordAutoDispatchSession records one completed auto-dispatch run.
func (r *Registry) RecordAutoDispatchSession(dispatched int) {
	if r == nil {
		return
	}
	r.AutoDispatchRuns.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("dispatched", dispatched > 0)))
}

func (r *Registry) setQueueDepth(depth int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queueDepth = depth
}
