package master

import (
	"errors"
	"testing"
	"time"

	"github.com/notnil/ecuemu/canbus"
	"github.com/notnil/ecuemu/dispatch"
	"github.com/notnil/ecuemu/protocol"
	"github.com/notnil/ecuemu/protocol/generic"
	"github.com/notnil/ecuemu/protocol/liquid"
	"github.com/notnil/ecuemu/state"
)

const node = 4

// serve starts a node on lb answering with r.
func serve(t *testing.T, lb *canbus.LoopbackBus, r dispatch.Responder) {
	t.Helper()
	e, err := dispatch.NewEngine(node, r, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	bus := lb.Open()
	t.Cleanup(func() { bus.Close() })
	go dispatch.NewServer(bus, e, nil).Serve()
}

func genericResponder(t *testing.T) dispatch.Responder {
	t.Helper()
	r, err := dispatch.NewGenericResponder(state.NewStore(), nil)
	if err != nil {
		t.Fatalf("NewGenericResponder: %v", err)
	}
	return r
}

func newClient(t *testing.T, lb *canbus.LoopbackBus) *Client {
	t.Helper()
	mux := canbus.NewMux(lb.Open())
	t.Cleanup(func() { mux.Close() })
	c, err := NewClient(mux, node, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_GenericVariables(t *testing.T) {
	lb := canbus.NewLoopbackBus()
	defer lb.Close()
	serve(t, lb, genericResponder(t))
	c := newClient(t, lb)

	if err := c.SetVariable(3, 42); err != nil {
		t.Fatalf("SetVariable: %v", err)
	}
	v, err := c.GetVariable(3)
	if err != nil {
		t.Fatalf("GetVariable: %v", err)
	}
	if v != 42 {
		t.Fatalf("GetVariable(3) = %d", v)
	}
	if v, _ := c.GetVariable(7); v != 0 {
		t.Fatalf("GetVariable(7) = %d", v)
	}
	res, err := c.Generic(generic.StatusReq{})
	if err != nil || res != (generic.StatusRes{}) {
		t.Fatalf("Generic(StatusReq) = %#v, %v", res, err)
	}
}

func TestClient_Liquid(t *testing.T) {
	n := state.NewNode(node)
	if err := n.AddParameter("1", state.UInt32, 0, false); err != nil {
		t.Fatalf("AddParameter: %v", err)
	}
	lb := canbus.NewLoopbackBus()
	defer lb.Close()
	serve(t, lb, dispatch.NewLiquidNode(n, nil))
	c := newClient(t, lb)

	got, err := c.Heartbeat(41)
	if err != nil || got != 42 {
		t.Fatalf("Heartbeat(41) = %d, %v", got, err)
	}
	st, err := c.SetParameter(1, 7)
	if err != nil || st != liquid.StatusSuccess {
		t.Fatalf("SetParameter = %v, %v", st, err)
	}
	st, err = c.SetParameter(5, 7)
	if err != nil || st != liquid.StatusInvalidParameterID {
		t.Fatalf("SetParameter(5) = %v, %v", st, err)
	}
}

func TestClient_Timeout(t *testing.T) {
	lb := canbus.NewLoopbackBus()
	defer lb.Close()
	c := newClient(t, lb)
	c.Timeout = 20 * time.Millisecond

	// No node is listening; a second endpoint keeps the frame deliverable.
	other := lb.Open()
	defer other.Close()
	go func() {
		for {
			if _, err := other.Receive(); err != nil {
				return
			}
		}
	}()

	if _, err := c.Heartbeat(1); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Heartbeat without node: %v", err)
	}
}

func TestClient_NoReplyForOtherNode(t *testing.T) {
	lb := canbus.NewLoopbackBus()
	defer lb.Close()
	serve(t, lb, genericResponder(t))
	mux := canbus.NewMux(lb.Open())
	defer mux.Close()
	c, err := NewClient(mux, node+1, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.GetVariable(1); !errors.Is(err, ErrTimeout) {
		t.Fatalf("GetVariable on absent node: %v", err)
	}
}

func TestReplyFilter(t *testing.T) {
	reply, _ := protocol.MessageID{Direction: protocol.NodeToMaster, NodeID: node, Priority: protocol.PriorityLow}.ArbitrationID()
	request, _ := protocol.MessageID{Direction: protocol.MasterToNode, NodeID: node}.ArbitrationID()
	other, _ := protocol.MessageID{Direction: protocol.NodeToMaster, NodeID: node + 1}.ArbitrationID()
	payload := make([]byte, 64)

	f := ReplyFilter(node)
	if !f(canbus.MustFDFrame(reply, payload)) {
		t.Fatalf("reply frame rejected")
	}
	if f(canbus.MustFDFrame(request, payload)) || f(canbus.MustFDFrame(other, payload)) {
		t.Fatalf("non-reply frame accepted")
	}
	if f(canbus.MustFrame(reply, []byte{1})) {
		t.Fatalf("classic frame accepted")
	}
}

func TestClient_RequestValidatesPayload(t *testing.T) {
	lb := canbus.NewLoopbackBus()
	defer lb.Close()
	c := newClient(t, lb)
	if _, err := c.Request(make([]byte, 8), nil); !errors.Is(err, protocol.ErrFrameLength) {
		t.Fatalf("Request(8 bytes): %v", err)
	}
	if _, err := NewClient(nil, 64, 0); !errors.Is(err, protocol.ErrIDOutOfRange) {
		t.Fatalf("NewClient(64): %v", err)
	}
}
