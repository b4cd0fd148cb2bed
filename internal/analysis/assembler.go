package analysis

import (
	"fmt"

	"github.com/yoockh/neurasense/internal/utils"
)

// ChannelMatrix is the channel-major sample matrix of one window. Every row
// has the same length.
type ChannelMatrix struct {
	Names      []string
	Rows       [][]float64
	SampleRate float64
}

// ChannelName is the canonical 1-based name partitions refer to.
func ChannelName(i int) string { return fmt.Sprintf("channel_%d", i+1) }

func (m *ChannelMatrix) Channels() int { return len(m.Rows) }

// Samples returns T, the per-channel sample count.
func (m *ChannelMatrix) Samples() int {
	if len(m.Rows) == 0 {
		return 0
	}
	return len(m.Rows[0])
}

// Duration is the window length in seconds.
func (m *ChannelMatrix) Duration() float64 {
	if m.SampleRate <= 0 {
		return 0
	}
	return float64(m.Samples()) / m.SampleRate
}

// Index returns the row index of a named channel.
func (m *ChannelMatrix) Index(name string) (int, bool) {
	for i, n := range m.Names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// Select returns a matrix restricted to the named channels, in the order
// given. Rows are shared with m.
func (m *ChannelMatrix) Select(names []string) (*ChannelMatrix, error) {
	const op = "ChannelMatrix.Select"

	out := &ChannelMatrix{SampleRate: m.SampleRate}
	for _, n := range names {
		i, ok := m.Index(n)
		if !ok {
			return nil, utils.E(utils.CodeInvalidArgument, op,
				fmt.Sprintf("partition channel %s not present (window has %d channels)", n, m.Channels()), utils.ErrInvalidPartition)
		}
		out.Names = append(out.Names, n)
		out.Rows = append(out.Rows, m.Rows[i])
	}
	return out, nil
}

// Assemble concatenates, per channel, the samples of every packet in window
// order.
func Assemble(w *Window, sampleRate float64) (*ChannelMatrix, error) {
	const op = "Assemble"

	if w == nil || len(w.Packets) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "empty window", utils.ErrInsufficientSamples)
	}

	n := w.Packets[0].ChannelCount()
	total := 0
	for i, p := range w.Packets {
		if p.ChannelCount() != n {
			return nil, utils.E(utils.CodeInvalidArgument, op,
				fmt.Sprintf("packet %d has %d channels, window started with %d", i+1, p.ChannelCount(), n), utils.ErrChannelCountMismatch)
		}
		total += p.SamplesPerChannel()
	}

	m := &ChannelMatrix{
		Names:      make([]string, n),
		Rows:       make([][]float64, n),
		SampleRate: sampleRate,
	}
	for c := 0; c < n; c++ {
		m.Names[c] = ChannelName(c)
		row := make([]float64, 0, total)
		for _, p := range w.Packets {
			row = append(row, p.Data[c]...)
		}
		m.Rows[c] = row
	}
	return m, nil
}
