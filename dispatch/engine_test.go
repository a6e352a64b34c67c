package dispatch

import (
	"errors"
	"testing"

	"github.com/notnil/ecuemu/canbus"
	"github.com/notnil/ecuemu/protocol"
	"github.com/notnil/ecuemu/protocol/generic"
	"github.com/notnil/ecuemu/state"
)

func TestEngine_RejectsBadFrames(t *testing.T) {
	e := newGenericEngine(t, state.NewStore())
	good := genericFrame(t, generic.StatusReq{})

	classic := canbus.MustFrame(good.ID, []byte{1, 2, 3})
	extended := good
	extended.Extended = true
	short := canbus.MustFDFrame(good.ID, make([]byte, 48))

	cases := []struct {
		name  string
		frame canbus.Frame
		want  error
	}{
		{"classic", classic, ErrNotFD},
		{"extended", extended, ErrExtendedID},
		{"short", short, protocol.ErrFrameLength},
	}
	for _, tc := range cases {
		_, ok, err := e.Process(tc.frame)
		if ok || !errors.Is(err, tc.want) {
			t.Fatalf("%s: ok=%v err=%v, want %v", tc.name, ok, err, tc.want)
		}
	}
}

func TestEngine_IgnoresOtherNodes(t *testing.T) {
	e := newGenericEngine(t, state.NewStore())
	id := requestID
	id.NodeID = testNode + 1
	b := generic.Envelope(generic.StatusReq{}, protocol.BufferDirect).Bytes()
	f := canbus.MustFDFrame(arbitration(t, id), b[:])
	if _, ok, err := e.Process(f); ok || err != nil {
		t.Fatalf("frame for node %d: ok=%v err=%v", id.NodeID, ok, err)
	}
}

func TestEngine_IgnoresNodeToMaster(t *testing.T) {
	e := newGenericEngine(t, state.NewStore())
	id := requestID
	id.Direction = protocol.NodeToMaster
	b := generic.Envelope(generic.StatusReq{}, protocol.BufferDirect).Bytes()
	f := canbus.MustFDFrame(arbitration(t, id), b[:])
	if _, ok, err := e.Process(f); ok || err != nil {
		t.Fatalf("node to master request: ok=%v err=%v", ok, err)
	}
}

func TestEngine_ReplyIdentifier(t *testing.T) {
	e := newGenericEngine(t, state.NewStore())
	req := genericFrame(t, generic.StatusReq{})
	req.BRS = true
	reply := process(t, e, req)
	if !reply.FD || reply.Extended || !reply.BRS || reply.Len != 64 {
		t.Fatalf("reply frame flags: %v", reply)
	}
	got := protocol.DecodeMessageID(uint16(reply.ID))
	want := protocol.MessageID{
		Direction: protocol.NodeToMaster,
		NodeID:    testNode,
		Special:   requestID.Special,
		Priority:  requestID.Priority,
	}
	if got != want {
		t.Fatalf("reply id = %+v want %+v", got, want)
	}
}

func TestEngine_UnknownChannelAndTag(t *testing.T) {
	e := newGenericEngine(t, state.NewStore())

	env, _ := protocol.NewEnvelope(9, protocol.BufferDirect, generic.TagStatusReq, nil)
	b := env.Bytes()
	f := canbus.MustFDFrame(arbitration(t, requestID), b[:])
	if _, _, err := e.Process(f); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("unknown channel: %v", err)
	}

	env, _ = protocol.NewEnvelope(generic.ChannelID, protocol.BufferDirect, 200, nil)
	b = env.Bytes()
	f = canbus.MustFDFrame(arbitration(t, requestID), b[:])
	if _, _, err := e.Process(f); !errors.Is(err, protocol.ErrUnknownTag) {
		t.Fatalf("unknown tag: %v", err)
	}
}

func TestNewEngine_RejectsNodeID(t *testing.T) {
	if _, err := NewEngine(64, NewEnvelopeResponder(), nil); !errors.Is(err, protocol.ErrIDOutOfRange) {
		t.Fatalf("NewEngine(64): %v", err)
	}
}

func TestEnvelopeResponder_Register(t *testing.T) {
	r := NewEnvelopeResponder()
	if err := r.Register(64, NewGenericChannel(state.NewStore(), nil)); !errors.Is(err, protocol.ErrChannelOutOfRange) {
		t.Fatalf("Register(64): %v", err)
	}
}
