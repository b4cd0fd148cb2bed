package analysis

import (
	"github.com/yoockh/neurasense/internal/models"
	"github.com/yoockh/neurasense/internal/utils"
)

// Window is a frozen batch of exactly Capacity packets in arrival order.
type Window struct {
	Seq     int64
	Packets []models.SamplePacket
	// Active is taken from the packet that completed the window.
	Active bool
}

// IngestBuffer accumulates packets for one session. It is owned by a single
// reader and is not safe for concurrent use.
type IngestBuffer struct {
	capacity int
	packets  []models.SamplePacket
	seq      int64
}

func NewIngestBuffer(capacity int) *IngestBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &IngestBuffer{
		capacity: capacity,
		packets:  make([]models.SamplePacket, 0, capacity),
	}
}

// Submit appends p. It returns a nil window while the buffer is filling and
// the detached window on the packet that reaches capacity, after which the
// buffer is empty again. A malformed packet is rejected without touching the
// buffered state.
func (b *IngestBuffer) Submit(p models.SamplePacket) (*Window, error) {
	const op = "IngestBuffer.Submit"

	if err := p.Validate(); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, utils.SafeMessage(err), err)
	}

	b.packets = append(b.packets, p)
	if len(b.packets) < b.capacity {
		return nil, nil
	}

	b.seq++
	w := &Window{Seq: b.seq, Packets: b.packets, Active: p.Active}
	b.packets = make([]models.SamplePacket, 0, b.capacity)
	return w, nil
}

// Reset drops any partially filled window.
func (b *IngestBuffer) Reset() {
	b.packets = make([]models.SamplePacket, 0, b.capacity)
}

func (b *IngestBuffer) Len() int      { return len(b.packets) }
func (b *IngestBuffer) Capacity() int { return b.capacity }

// Windows returns how many windows have been handed off so far.
func (b *IngestBuffer) Windows() int64 { return b.seq }
