package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// Message is a scheduled message waiting for its virtual due time.
// Messages are created by Queue.Push and never mutated afterwards.
type Message struct {
	ID    uuid.UUID     `json:"id"`
	Tag   int           `json:"tag"`
	DueAt time.Duration `json:"due_at"`

	// seq breaks ties between messages sharing a due time: equal due
	// times dispatch in enqueue order.
	seq uint64
}

// Seq returns the insertion sequence number assigned at enqueue time.
// Sequence numbers are strictly increasing and never reused.
func (m Message) Seq() uint64 {
	return m.seq
}
