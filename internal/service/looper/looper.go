package looper

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/deterministic-dispatch/internal/domain/dispatch"
	"github.com/davidleathers/deterministic-dispatch/internal/metrics"
)

const (
	defaultPollInterval = time.Millisecond
	defaultStopTimeout  = 5 * time.Second
)

// Handler receives dispatched messages. It is invoked synchronously and
// strictly sequentially per Looper, on whichever goroutine performs the
// dispatch. A handler may enqueue further messages on the same Looper,
// but must not call DispatchAll or the auto-dispatch methods.
type Handler interface {
	HandleMessage(msg dispatch.Message)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(msg dispatch.Message)

func (f HandlerFunc) HandleMessage(msg dispatch.Message) {
	f(msg)
}

// Looper is a deterministic message dispatch loop driven by a virtual
// clock. Time moves only when the driver calls MoveTimeForward; due
// messages are delivered either synchronously through DispatchAll or by
// the auto-dispatch background loop.
type Looper struct {
	// mu guards the queue and its clock together; ordering correctness
	// depends on both being observed consistently.
	mu    sync.Mutex
	queue *dispatch.Queue

	// dispatchMu serializes dispatch so that DispatchAll and the
	// auto-dispatch loop never run handlers concurrently.
	dispatchMu sync.Mutex

	autoMu sync.Mutex
	auto   *autoSession

	handler      Handler
	logger       *zap.Logger
	registry     *metrics.Registry
	pollInterval time.Duration
	stopTimeout  time.Duration
}

// Option configures a Looper.
type Option func(*Looper)

// WithLogger sets the logger used by the looper and its background loop.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Looper) { l.logger = logger }
}

// WithMetrics attaches a metrics registry. A nil registry disables
// instrumentation.
func WithMetrics(registry *metrics.Registry) Option {
	return func(l *Looper) { l.registry = registry }
}

// WithPollInterval sets the pacing of the auto-dispatch loop's idle polls.
func WithPollInterval(d time.Duration) Option {
	return func(l *Looper) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithStopTimeout bounds how long StopAutoDispatch waits for the
// background loop to quiesce.
func WithStopTimeout(d time.Duration) Option {
	return func(l *Looper) {
		if d > 0 {
			l.stopTimeout = d
		}
	}
}

// New creates a Looper delivering messages to handler.
func New(handler Handler, opts ...Option) *Looper {
	l := &Looper{
		queue:        dispatch.NewQueue(),
		handler:      handler,
		logger:       zap.NewNop(),
		pollInterval: defaultPollInterval,
		stopTimeout:  defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Send enqueues a message due immediately.
func (l *Looper) Send(tag int) error {
	return l.SendDelayed(tag, 0)
}

// SendDelayed enqueues a message due delay from the current virtual time.
func (l *Looper) SendDelayed(tag int, delay time.Duration) error {
	l.mu.Lock()
	msg, err := l.queue.Push(tag, delay)
	depth := l.queue.Len()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.logger.Debug("message enqueued",
		zap.Int("tag", msg.Tag),
		zap.Duration("due_at", msg.DueAt),
		zap.Int("queue_depth", depth))
	l.registry.RecordEnqueue(int64(depth))
	return nil
}

// MoveTimeForward advances the virtual clock. It has no dispatch side
// effect; it only changes which queued messages are due.
func (l *Looper) MoveTimeForward(d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Advance(d)
}

// Now returns the current virtual time.
func (l *Looper) Now() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Now()
}

// Pending returns the number of queued messages, due or not.
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Len()
}

// DueCount returns how many queued messages are due right now.
func (l *Looper) DueCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.DueCount()
}

// DispatchAll synchronously delivers every due message in (due time,
// enqueue) order and returns the number delivered. Messages that become
// due during the drain (zero-delay follow-ups enqueued by a handler) are
// delivered in the same call. If the auto-dispatch loop is running,
// DispatchAll blocks until the loop's current drain finishes.
func (l *Looper) DispatchAll() int {
	return l.dispatchDue()
}

// dispatchDue is the single dispatch path shared by DispatchAll and the
// auto-dispatch loop. The queue lock is released around the handler call
// so handlers can enqueue follow-ups.
func (l *Looper) dispatchDue() int {
	l.dispatchMu.Lock()
	defer l.dispatchMu.Unlock()

	n := 0
	depth := 0
	for {
		l.mu.Lock()
		msg, ok := l.queue.PopDue()
		depth = l.queue.Len()
		l.mu.Unlock()
		if !ok {
			break
		}
		l.handler.HandleMessage(msg)
		n++
	}

	if n > 0 {
		l.logger.Debug("dispatched due messages", zap.Int("count", n))
		l.registry.RecordDispatch(n, int64(depth))
	}
	return n
}
