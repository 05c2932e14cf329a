package dispatch

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/deterministic-dispatch/internal/domain/errors"
)

// Queue holds pending messages in (due time, enqueue order). It owns the
// virtual clock, since dispatch eligibility is defined against it.
//
// Queue is not safe for concurrent use; the service layer serializes all
// access behind one lock so that clock and queue are always observed
// together.
type Queue struct {
	clock   *Clock
	pending []Message
	nextSeq uint64
}

func NewQueue() *Queue {
	return &Queue{clock: NewClock()}
}

// Now returns the current virtual time.
func (q *Queue) Now() time.Duration {
	return q.clock.Now()
}

// Advance moves virtual time forward. It does not dispatch anything; it
// only changes which pending messages are due.
func (q *Queue) Advance(d time.Duration) error {
	return q.clock.Advance(d)
}

// Push enqueues a message due delay from now. Messages with the same due
// time keep their enqueue order.
func (q *Queue) Push(tag int, delay time.Duration) (Message, error) {
	if delay < 0 {
		return Message{}, errors.ErrNegativeDelay
	}

	msg := Message{
		ID:    uuid.New(),
		Tag:   tag,
		DueAt: q.clock.Now() + delay,
		seq:   q.nextSeq,
	}
	q.nextSeq++

	// Insert after every entry with DueAt <= msg.DueAt; sequence order
	// falls out of the insertion position.
	i := sort.Search(len(q.pending), func(i int) bool {
		return q.pending[i].DueAt > msg.DueAt
	})
	q.pending = append(q.pending, Message{})
	copy(q.pending[i+1:], q.pending[i:])
	q.pending[i] = msg

	return msg, nil
}

// PopDue removes and returns the earliest due message, if any. Iterating
// until the second return value is false drains everything due at the
// current virtual time; entries not yet due stay queued in order.
func (q *Queue) PopDue() (Message, bool) {
	if len(q.pending) == 0 || q.pending[0].DueAt > q.clock.Now() {
		return Message{}, false
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, true
}

// Len returns the number of pending messages, due or not.
func (q *Queue) Len() int {
	return len(q.pending)
}

// DueCount returns how many pending messages are due at the current
// virtual time.
func (q *Queue) DueCount() int {
	now := q.clock.Now()
	n := sort.Search(len(q.pending), func(i int) bool {
		return q.pending[i].DueAt > now
	})
	return n
}
