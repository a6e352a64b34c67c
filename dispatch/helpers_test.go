package dispatch

import (
	"testing"

	"github.com/notnil/ecuemu/canbus"
	"github.com/notnil/ecuemu/protocol"
	"github.com/notnil/ecuemu/protocol/generic"
	"github.com/notnil/ecuemu/protocol/liquid"
	"github.com/notnil/ecuemu/state"
)

const testNode = 3

var requestID = protocol.MessageID{
	Direction: protocol.MasterToNode,
	NodeID:    testNode,
	Special:   protocol.SpecialStandard,
	Priority:  protocol.PriorityHigh,
}

func arbitration(t *testing.T, id protocol.MessageID) uint32 {
	t.Helper()
	arb, err := id.ArbitrationID()
	if err != nil {
		t.Fatalf("ArbitrationID: %v", err)
	}
	return arb
}

func genericFrame(t *testing.T, cmd generic.Command) canbus.Frame {
	t.Helper()
	b := generic.Envelope(cmd, protocol.BufferDirect).Bytes()
	return canbus.MustFDFrame(arbitration(t, requestID), b[:])
}

func liquidFrame(t *testing.T, cmd liquid.Command) canbus.Frame {
	t.Helper()
	return canbus.MustFDFrame(arbitration(t, requestID), liquid.ToWire(cmd))
}

func decodeGeneric(t *testing.T, f canbus.Frame) generic.Command {
	t.Helper()
	env, err := protocol.DecodeEnvelope(f.Payload())
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if env.ChannelID != generic.ChannelID || env.Buffer != protocol.BufferDirect {
		t.Fatalf("reply envelope channel=%d buffer=%v", env.ChannelID, env.Buffer)
	}
	cmd, err := generic.FromEnvelope(env)
	if err != nil {
		t.Fatalf("FromEnvelope: %v", err)
	}
	return cmd
}

func decodeLiquid(t *testing.T, f canbus.Frame) liquid.Command {
	t.Helper()
	cmd, err := liquid.FromWire(f.Payload())
	if err != nil {
		t.Fatalf("liquid.FromWire: %v", err)
	}
	return cmd
}

func genericResponder(t *testing.T, store *state.Store) *EnvelopeResponder {
	t.Helper()
	r, err := NewGenericResponder(store, nil)
	if err != nil {
		t.Fatalf("NewGenericResponder: %v", err)
	}
	return r
}

func newGenericEngine(t *testing.T, store *state.Store) *Engine {
	t.Helper()
	e, err := NewEngine(testNode, genericResponder(t, store), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func newLiquidNode(t *testing.T) *state.Node {
	t.Helper()
	n := state.NewNode(testNode)
	n.FirmwareHash = 0xCAFEBABE
	n.LiquidHash = 0x12345678
	n.DeviceName = "pump"
	steps := []error{
		n.AddTelemetry("temperature", state.Float32, 0x41AC0000),
		n.AddTelemetry("pressure", state.UInt16, 1013),
		n.AddTelemetry("rpm", state.UInt32, 3000),
		n.AddParameter("1", state.UInt32, 10, false),
		n.AddParameter("2", state.UInt32, 20, true),
	}
	for _, err := range steps {
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	return n
}

func newLiquidEngine(t *testing.T, n *state.Node) *Engine {
	t.Helper()
	e, err := NewEngine(testNode, NewLiquidNode(n, nil), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// process runs f and fails the test unless a reply is produced.
func process(t *testing.T, e *Engine, f canbus.Frame) canbus.Frame {
	t.Helper()
	reply, ok, err := e.Process(f)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !ok {
		t.Fatalf("Process: no reply")
	}
	return reply
}
