package fixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidleathers/deterministic-dispatch/internal/domain/dispatch"
	"github.com/davidleathers/deterministic-dispatch/internal/service/looper"
)

type preloadedMessage struct {
	tag   int
	delay time.Duration
}

// LooperBuilder builds test Looper instances
type LooperBuilder struct {
	t       *testing.T
	handler looper.Handler
	opts    []looper.Option
	preload []preloadedMessage
}

// NewLooperBuilder creates a new LooperBuilder with defaults
func NewLooperBuilder(t *testing.T) *LooperBuilder {
	t.Helper()
	return &LooperBuilder{
		t:       t,
		handler: looper.HandlerFunc(func(dispatch.Message) {}),
	}
}

// WithHandler sets the handler messages are delivered to
func (b *LooperBuilder) WithHandler(h looper.Handler) *LooperBuilder {
	b.handler = h
	return b
}

// WithPollInterval sets the auto-dispatch poll interval
func (b *LooperBuilder) WithPollInterval(d time.Duration) *LooperBuilder {
	b.opts = append(b.opts, looper.WithPollInterval(d))
	return b
}

// WithStopTimeout sets the auto-dispatch stop timeout
func (b *LooperBuilder) WithStopTimeout(d time.Duration) *LooperBuilder {
	b.opts = append(b.opts, looper.WithStopTimeout(d))
	return b
}

// WithMessage preloads a message enqueued during Build
func (b *LooperBuilder) WithMessage(tag int, delay time.Duration) *LooperBuilder {
	b.preload = append(b.preload, preloadedMessage{tag: tag, delay: delay})
	return b
}

// Build creates the looper and enqueues any preloaded messages
func (b *LooperBuilder) Build() *looper.Looper {
	b.t.Helper()
	lp := looper.New(b.handler, b.opts...)
	for _, msg := range b.preload {
		require.NoError(b.t, lp.SendDelayed(msg.tag, msg.delay))
	}
	return lp
}
