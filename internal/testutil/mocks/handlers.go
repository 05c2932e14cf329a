package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/davidleathers/deterministic-dispatch/internal/domain/dispatch"
)

// Handler mock
type Handler struct {
	mock.Mock
}

func (m *Handler) HandleMessage(msg dispatch.Message) {
	m.Called(msg)
}

// RecordingHandler captures dispatched messages in delivery order. It is
// safe for use from the auto-dispatch goroutine.
type RecordingHandler struct {
	mu       sync.Mutex
	messages []dispatch.Message
}

func NewRecordingHandler() *RecordingHandler {
	return &RecordingHandler{}
}

func (h *RecordingHandler) HandleMessage(msg dispatch.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// Tags returns the tags of all captured messages in delivery order.
func (h *RecordingHandler) Tags() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var tags []int
	for _, msg := range h.messages {
		tags = append(tags, msg.Tag)
	}
	return tags
}

// Messages returns a copy of all captured messages in delivery order.
func (h *RecordingHandler) Messages() []dispatch.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]dispatch.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Count returns how many messages have been captured.
func (h *RecordingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func (h *RecordingHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
