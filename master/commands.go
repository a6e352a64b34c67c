package master

import (
	"github.com/notnil/ecuemu/protocol"
	"github.com/notnil/ecuemu/protocol/generic"
	"github.com/notnil/ecuemu/protocol/liquid"
)

// Generic sends a GenericChannel command and returns the decoded reply.
// Replies on other channels are skipped.
func (c *Client) Generic(cmd generic.Command) (generic.Command, error) {
	b := generic.Envelope(cmd, protocol.BufferDirect).Bytes()
	p, err := c.Request(b[:], func(p []byte) bool {
		return p[0]&protocol.MaxChannelID == generic.ChannelID
	})
	if err != nil {
		return nil, err
	}
	env, err := protocol.DecodeEnvelope(p)
	if err != nil {
		return nil, err
	}
	return generic.FromEnvelope(env)
}

// Liquid sends a liquid command and returns the decoded reply.
func (c *Client) Liquid(cmd liquid.Command) (liquid.Command, error) {
	p, err := c.Request(liquid.ToWire(cmd), nil)
	if err != nil {
		return nil, err
	}
	return liquid.FromWire(p)
}

// GetVariable reads a GenericChannel variable.
func (c *Client) GetVariable(id uint8) (uint32, error) {
	res, err := c.Generic(generic.GetVariableReq{GetMsg: protocol.GetMsg{VariableID: id}})
	if err != nil {
		return 0, err
	}
	r, ok := res.(generic.GetVariableRes)
	if !ok {
		return 0, unexpected(generic.Name(res.Tag()))
	}
	return r.Value, nil
}

// SetVariable writes a GenericChannel variable and waits for the echo.
func (c *Client) SetVariable(id uint8, v uint32) error {
	res, err := c.Generic(generic.SetVariableReq{SetMsg: protocol.SetMsg{VariableID: id, Value: v}})
	if err != nil {
		return err
	}
	if _, ok := res.(generic.SetVariableRes); !ok {
		return unexpected(generic.Name(res.Tag()))
	}
	return nil
}

// Heartbeat sends a heartbeat with counter and returns the node's counter.
func (c *Client) Heartbeat(counter uint32) (uint32, error) {
	res, err := c.Liquid(liquid.HeartbeatReq{Counter: counter})
	if err != nil {
		return 0, err
	}
	r, ok := res.(liquid.HeartbeatRes)
	if !ok {
		return 0, unexpected(liquid.Name(res.Tag()))
	}
	return r.Counter, nil
}

// SetParameter writes a liquid parameter and returns the node's status.
func (c *Client) SetParameter(id uint8, v uint32) (liquid.Status, error) {
	res, err := c.Liquid(liquid.NewParameterSetReq(id, v))
	if err != nil {
		return 0, err
	}
	r, ok := res.(liquid.ParameterSetConfirmation)
	if !ok {
		return 0, unexpected(liquid.Name(res.Tag()))
	}
	return r.Status, nil
}
