package dispatch

import (
	"fmt"

	"github.com/notnil/ecuemu/protocol"
)

// Channel handles the tagged commands of one envelope channel. Handle
// receives the command id followed by the envelope payload and returns the
// tagged reply, or nil when there is none.
type Channel interface {
	Handle(id protocol.MessageID, wire []byte) ([]byte, error)
}

// EnvelopeResponder decodes the 64-byte envelope and routes its command to
// the channel registered for the envelope's channel id. Replies travel on
// the same channel with buffer type Direct.
type EnvelopeResponder struct {
	channels map[uint8]Channel
}

// NewEnvelopeResponder returns a responder with no channels.
func NewEnvelopeResponder() *EnvelopeResponder {
	return &EnvelopeResponder{channels: make(map[uint8]Channel)}
}

// Register installs ch for channel id, replacing any previous handler.
func (r *EnvelopeResponder) Register(id uint8, ch Channel) error {
	if id > protocol.MaxChannelID {
		return fmt.Errorf("%w: %d", protocol.ErrChannelOutOfRange, id)
	}
	r.channels[id] = ch
	return nil
}

// Respond implements Responder.
func (r *EnvelopeResponder) Respond(id protocol.MessageID, payload []byte) ([]byte, bool, error) {
	env, err := protocol.DecodeEnvelope(payload)
	if err != nil {
		return nil, false, err
	}
	ch, ok := r.channels[env.ChannelID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %d", ErrUnknownChannel, env.ChannelID)
	}
	wire, err := ch.Handle(id, env.Wire())
	if err != nil || wire == nil {
		return nil, false, err
	}
	out, err := protocol.EnvelopeFromWire(env.ChannelID, protocol.BufferDirect, wire)
	if err != nil {
		return nil, false, err
	}
	b := out.Bytes()
	return b[:], true, nil
}
