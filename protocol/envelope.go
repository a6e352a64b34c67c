package protocol

import "fmt"

// Envelope geometry.
const (
	// FrameSize is the CAN FD payload every envelope occupies.
	FrameSize = 64
	// PayloadSize is the command region after the info and command bytes.
	PayloadSize = FrameSize - 2
	// WireSize is the command id plus the command region, i.e. the tagged
	// command encoding carried by an envelope.
	WireSize = FrameSize - 1
	// MaxChannelID is the largest channel id a 6-bit field can carry.
	MaxChannelID = 63
)

// BufferType selects how the receiver applies the command data.
type BufferType uint8

const (
	BufferDirect   BufferType = 0
	BufferAbsolute BufferType = 1
	BufferRelative BufferType = 2
	BufferReserved BufferType = 3
)

func (b BufferType) String() string {
	switch b {
	case BufferDirect:
		return "direct"
	case BufferAbsolute:
		return "absolute"
	case BufferRelative:
		return "relative"
	case BufferReserved:
		return "reserved"
	default:
		return fmt.Sprintf("BufferType(%d)", uint8(b))
	}
}

// Envelope is the fixed 64-byte CAN FD payload.
//
// Layout:
//
//	byte0      bits0-5 channel id, bits6-7 buffer type
//	byte1      command id
//	bytes2-63  command payload, zero-padded
type Envelope struct {
	ChannelID uint8
	Buffer    BufferType
	CommandID uint8
	Payload   [PayloadSize]byte
}

// NewEnvelope validates the channel id and copies payload left-aligned into
// the command region.
func NewEnvelope(channel uint8, buffer BufferType, command uint8, payload []byte) (Envelope, error) {
	if channel > MaxChannelID {
		return Envelope{}, fmt.Errorf("%w: %d", ErrChannelOutOfRange, channel)
	}
	if len(payload) > PayloadSize {
		return Envelope{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLong, len(payload), PayloadSize)
	}
	e := Envelope{ChannelID: channel, Buffer: buffer & 0x3, CommandID: command}
	copy(e.Payload[:], payload)
	return e, nil
}

// EnvelopeFromWire wraps a tagged command encoding (tag byte followed by
// the body) so that the tag lands in the command id byte.
func EnvelopeFromWire(channel uint8, buffer BufferType, wire []byte) (Envelope, error) {
	if len(wire) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty command", ErrShortPayload)
	}
	return NewEnvelope(channel, buffer, wire[0], wire[1:])
}

// Wire returns the command id followed by the payload: the tagged command
// encoding carried by this envelope.
func (e Envelope) Wire() []byte {
	out := make([]byte, WireSize)
	out[0] = e.CommandID
	copy(out[1:], e.Payload[:])
	return out
}

// Bytes encodes the envelope into a fixed-size buffer.
func (e Envelope) Bytes() [FrameSize]byte {
	var b [FrameSize]byte
	b[0] = e.ChannelID&MaxChannelID | uint8(e.Buffer&0x3)<<6
	b[1] = e.CommandID
	copy(b[2:], e.Payload[:])
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (e Envelope) MarshalBinary() ([]byte, error) {
	if e.ChannelID > MaxChannelID {
		return nil, fmt.Errorf("%w: %d", ErrChannelOutOfRange, e.ChannelID)
	}
	b := e.Bytes()
	return b[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	if len(data) != FrameSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameLength, len(data), FrameSize)
	}
	e.ChannelID = data[0] & MaxChannelID
	e.Buffer = BufferType(data[0] >> 6)
	e.CommandID = data[1]
	copy(e.Payload[:], data[2:])
	return nil
}

// DecodeEnvelope parses a 64-byte CAN FD payload.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := e.UnmarshalBinary(data); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
