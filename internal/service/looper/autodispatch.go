package looper

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/davidleathers/deterministic-dispatch/internal/domain/errors"
)

// autoSession tracks one run of the background dispatch loop. Exactly one
// session exists while the looper is in the Running state.
type autoSession struct {
	cancel context.CancelFunc
	done   chan struct{}
	count  atomic.Int64
}

// StartAutoDispatch transitions the looper from Idle to Running and spawns
// the background dispatch loop. The loop delivers messages as they become
// due against the current virtual time; it never advances the clock
// itself. Starting while already Running returns
// errors.ErrAutoDispatchRunning and leaves the running session untouched.
func (l *Looper) StartAutoDispatch() error {
	l.autoMu.Lock()
	defer l.autoMu.Unlock()

	if l.auto != nil {
		return errors.ErrAutoDispatchRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &autoSession{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	l.auto = session
	go l.autoDispatchLoop(ctx, session)

	l.logger.Info("auto-dispatch started",
		zap.Duration("poll_interval", l.pollInterval))
	return nil
}

// StopAutoDispatch signals the background loop to stop and blocks until it
// has fully quiesced; no dispatch happens after it returns. It returns the
// number of messages the loop delivered since StartAutoDispatch.
//
// The transition back to Idle always completes, even on the error paths:
// stopping a loop that delivered nothing returns
// errors.ErrNoMessagesDispatched as a usage signal, but the looper remains
// fully usable afterwards. Stopping while Idle returns
// errors.ErrAutoDispatchIdle.
func (l *Looper) StopAutoDispatch() (int, error) {
	l.autoMu.Lock()
	defer l.autoMu.Unlock()

	session := l.auto
	if session == nil {
		return 0, errors.ErrAutoDispatchIdle
	}

	session.cancel()
	select {
	case <-session.done:
	case <-time.After(l.stopTimeout):
		l.auto = nil
		l.logger.Error("auto-dispatch loop did not quiesce",
			zap.Duration("timeout", l.stopTimeout))
		return int(session.count.Load()), errors.ErrStopTimeout
	}
	l.auto = nil

	dispatched := int(session.count.Load())
	l.logger.Info("auto-dispatch stopped", zap.Int("dispatched", dispatched))
	l.registry.RecordAutoDispatchSession(dispatched)

	if dispatched == 0 {
		return 0, errors.ErrNoMessagesDispatched
	}
	return dispatched, nil
}

// autoDispatchLoop drains due messages until cancelled. Between empty
// drains it idles on a rate limiter paced at the poll interval, so it
// neither busy-spins nor sleeps past a stop signal. On cancellation it
// performs one final drain before exiting, so a message enqueued just
// before StopAutoDispatch is still delivered and counted.
func (l *Looper) autoDispatchLoop(ctx context.Context, session *autoSession) {
	defer close(session.done)

	limiter := rate.NewLimiter(rate.Every(l.pollInterval), 1)
	for {
		n := l.dispatchDue()
		if n > 0 {
			session.count.Add(int64(n))
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			if n := l.dispatchDue(); n > 0 {
				session.count.Add(int64(n))
			}
			return
		}
	}
}
