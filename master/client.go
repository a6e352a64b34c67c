// Package master implements the master side of the node protocol: it sends
// requests to one node and waits for the node's replies.
package master

import (
	"errors"
	"fmt"
	"time"

	"github.com/notnil/ecuemu/canbus"
	"github.com/notnil/ecuemu/protocol"
)

// ErrTimeout reports that no reply arrived in time.
var ErrTimeout = errors.New("master: timeout waiting for reply")

// Client talks to a single node.
//
// Replies are collected through a Mux so other consumers of the bus keep
// receiving frames. A zero Timeout waits indefinitely.
type Client struct {
	mux      *canbus.Mux
	node     uint8
	Special  protocol.SpecialCommand
	Priority protocol.Priority
	Timeout  time.Duration
	BRS      bool
}

// NewClient returns a client for node. Requests are sent as standard
// commands at standard priority.
func NewClient(mux *canbus.Mux, node uint8, timeout time.Duration) (*Client, error) {
	if node > protocol.MaxNodeID {
		return nil, fmt.Errorf("%w: node id %d", protocol.ErrIDOutOfRange, node)
	}
	return &Client{
		mux:      mux,
		node:     node,
		Special:  protocol.SpecialStandard,
		Priority: protocol.PriorityStandard,
		Timeout:  timeout,
	}, nil
}

// Node returns the id of the node the client talks to.
func (c *Client) Node() uint8 { return c.node }

// ReplyFilter matches CAN FD frames a node sends to the master.
func ReplyFilter(node uint8) canbus.FrameFilter {
	want := uint32(protocol.NodeToMaster) | uint32(node&protocol.MaxNodeID)<<1
	return canbus.And(
		canbus.StandardOnly(),
		canbus.FDOnly(),
		canbus.LenExactly(protocol.FrameSize),
		canbus.ByMask(want, 0x7F),
	)
}

func (c *Client) requestFrame(payload []byte) (canbus.Frame, error) {
	id, err := protocol.NewMessageID(protocol.MasterToNode, c.node, c.Special, c.Priority)
	if err != nil {
		return canbus.Frame{}, err
	}
	arb, err := id.ArbitrationID()
	if err != nil {
		return canbus.Frame{}, err
	}
	f := canbus.Frame{ID: arb, FD: true, BRS: c.BRS, Len: protocol.FrameSize}
	copy(f.Data[:], payload)
	return f, nil
}

// Request sends a 64-byte payload and returns the payload of the first reply
// accepted by match. A nil match accepts any reply from the node.
func (c *Client) Request(payload []byte, match func([]byte) bool) ([]byte, error) {
	if len(payload) != protocol.FrameSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", protocol.ErrFrameLength, len(payload), protocol.FrameSize)
	}
	req, err := c.requestFrame(payload)
	if err != nil {
		return nil, err
	}

	ch, cancel := c.mux.Subscribe(ReplyFilter(c.node), 4)
	defer cancel()

	if err := c.mux.Send(req); err != nil {
		return nil, err
	}

	var timeout <-chan time.Time
	if c.Timeout > 0 {
		timer := time.NewTimer(c.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return nil, canbus.ErrClosed
			}
			p := f.Payload()
			if match == nil || match(p) {
				return p, nil
			}
		case <-timeout:
			return nil, ErrTimeout
		}
	}
}

// Send transmits a payload to the node without waiting for a reply.
func (c *Client) Send(payload []byte) error {
	req, err := c.requestFrame(payload)
	if err != nil {
		return err
	}
	return c.mux.Send(req)
}
