package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yoockh/neurasense/internal/utils"
)

// SamplePacket is one arrival unit: an ordered sample chunk per channel.
type SamplePacket struct {
	Data   [][]float64 `json:"data"`
	Active bool        `json:"active"`
}

// ChannelCount returns the number of channels carried by the packet.
func (p SamplePacket) ChannelCount() int { return len(p.Data) }

// SamplesPerChannel returns the chunk length, which Validate guarantees is
// identical across channels.
func (p SamplePacket) SamplesPerChannel() int {
	if len(p.Data) == 0 {
		return 0
	}
	return len(p.Data[0])
}

// Validate checks the packet shape: at least one channel, every channel
// non-empty and all channels of equal length.
func (p SamplePacket) Validate() error {
	const op = "SamplePacket.Validate"

	if len(p.Data) == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "packet has no channels", utils.ErrMalformedPacket)
	}
	n := len(p.Data[0])
	for i, ch := range p.Data {
		if len(ch) == 0 {
			return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("channel_%d has no samples", i+1), utils.ErrMalformedPacket)
		}
		if len(ch) != n {
			return utils.E(utils.CodeInvalidArgument, op,
				fmt.Sprintf("channel_%d has %d samples, channel_1 has %d", i+1, len(ch), n), utils.ErrMalformedPacket)
		}
	}
	return nil
}

// InboundMessage is the websocket frame sent by the headset client. The
// desktop client nests the device frame under "packet"; bare "data" is
// accepted as well.
type InboundMessage struct {
	Data      json.RawMessage `json:"data"`
	Packet    *devicePacket   `json:"packet"`
	IsPhantom *bool           `json:"isPhantom"`
}

type devicePacket struct {
	Data json.RawMessage `json:"data"`
}

// ParsePacket decodes one inbound text frame. isPhantom == true selects live
// assessment; a missing or false flag is baseline capture.
func ParsePacket(raw []byte) (SamplePacket, error) {
	const op = "ParsePacket"

	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return SamplePacket{}, utils.E(utils.CodeInvalidArgument, op, "invalid json", utils.Wrap(utils.ErrMalformedPacket, err))
	}

	data := msg.Data
	if isNull(data) && msg.Packet != nil {
		data = msg.Packet.Data
	}
	if isNull(data) {
		return SamplePacket{}, utils.E(utils.CodeInvalidArgument, op, "data is required", utils.ErrMalformedPacket)
	}

	var channels [][]float64
	if err := json.Unmarshal(data, &channels); err != nil {
		return SamplePacket{}, utils.E(utils.CodeInvalidArgument, op, "data must be an array of numeric sample arrays", utils.Wrap(utils.ErrMalformedPacket, err))
	}

	p := SamplePacket{Data: channels, Active: msg.IsPhantom != nil && *msg.IsPhantom}
	if err := p.Validate(); err != nil {
		return SamplePacket{}, err
	}
	return p, nil
}

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
