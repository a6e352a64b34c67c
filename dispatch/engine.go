// Package dispatch turns received CAN FD frames into node commands, runs
// them against node state and builds the reply frames.
package dispatch

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/notnil/ecuemu/canbus"
	"github.com/notnil/ecuemu/protocol"
)

var (
	// ErrNotFD reports a classic CAN frame; the node protocol needs CAN FD.
	ErrNotFD = errors.New("dispatch: not a CAN FD frame")
	// ErrExtendedID reports a frame with a 29-bit identifier.
	ErrExtendedID = errors.New("dispatch: extended identifier")
	// ErrUnknownChannel reports an envelope channel no handler is registered for.
	ErrUnknownChannel = errors.New("dispatch: unknown channel")
)

// Responder answers the 64-byte payload of a frame addressed to this node.
// It returns ok=false when the command takes no reply.
type Responder interface {
	Respond(id protocol.MessageID, payload []byte) (reply []byte, ok bool, err error)
}

// Engine validates incoming frames, filters them by node id and hands them
// to a Responder.
type Engine struct {
	node      uint8
	responder Responder
	logger    *zap.Logger
}

// NewEngine returns an engine for the node with the given id. A nil logger
// disables logging.
func NewEngine(node uint8, r Responder, logger *zap.Logger) (*Engine, error) {
	if node > protocol.MaxNodeID {
		return nil, fmt.Errorf("%w: node id %d", protocol.ErrIDOutOfRange, node)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{node: node, responder: r, logger: logger}, nil
}

// Node returns the node id the engine answers for.
func (e *Engine) Node() uint8 { return e.node }

// Process handles one frame. It returns the reply frame and ok=true when a
// reply must be sent. Frames addressed to other nodes, and frames sent in
// the node to master direction, are ignored without error.
func (e *Engine) Process(f canbus.Frame) (canbus.Frame, bool, error) {
	if f.Extended {
		return canbus.Frame{}, false, fmt.Errorf("%w: 0x%X", ErrExtendedID, f.ID)
	}
	if !f.FD {
		return canbus.Frame{}, false, fmt.Errorf("%w: 0x%03X", ErrNotFD, f.ID)
	}
	if f.Len != protocol.FrameSize {
		return canbus.Frame{}, false, fmt.Errorf("%w: got %d bytes, want %d", protocol.ErrFrameLength, f.Len, protocol.FrameSize)
	}

	id := protocol.DecodeMessageID(uint16(f.ID))
	if id.Direction != protocol.MasterToNode {
		e.logger.Debug("ignoring node to master frame",
			zap.Uint8("node_id", id.NodeID), zap.Uint32("can_id", f.ID))
		return canbus.Frame{}, false, nil
	}
	if id.NodeID != e.node {
		e.logger.Debug("ignoring frame for other node",
			zap.Uint8("node_id", id.NodeID), zap.Uint32("can_id", f.ID))
		return canbus.Frame{}, false, nil
	}

	reply, ok, err := e.responder.Respond(id, f.Data[:protocol.FrameSize])
	if err != nil || !ok {
		return canbus.Frame{}, false, err
	}
	if len(reply) != protocol.FrameSize {
		return canbus.Frame{}, false, fmt.Errorf("%w: reply has %d bytes", protocol.ErrFrameLength, len(reply))
	}

	arb, err := id.Reply(e.node).ArbitrationID()
	if err != nil {
		return canbus.Frame{}, false, err
	}
	out := canbus.Frame{ID: arb, FD: true, BRS: f.BRS, Len: protocol.FrameSize}
	copy(out.Data[:], reply)
	return out, true, nil
}
