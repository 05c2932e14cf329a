package dispatch

import (
	"time"

	"github.com/davidleathers/deterministic-dispatch/internal/domain/errors"
)

// Clock is a virtual clock. It starts at zero and only moves when a test
// driver advances it explicitly; dispatch never moves it.
type Clock struct {
	now time.Duration
}

func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current virtual time as an offset from the clock's start.
func (c *Clock) Now() time.Duration {
	return c.now
}

// Advance moves the clock forward by d. Advancing by zero is a no-op.
func (c *Clock) Advance(d time.Duration) error {
	if d < 0 {
		return errors.ErrNegativeAdvance
	}
	c.now += d
	return nil
}
