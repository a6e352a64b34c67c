package liquid

import (
	"errors"
	"testing"

	"github.com/notnil/ecuemu/protocol"
)

func allVariants() []Command {
	ann := NodeInfoAnnouncement{TelCount: 2, ParCount: 3, FirmwareHash: 0xCAFEBABE, LiquidHash: 0x12345678}
	copy(ann.DeviceName[:], "ecu-emulator")
	conf := ParameterSetConfirmation{ParameterID: 1, Status: StatusParameterLocked}
	conf.Value[0], conf.Value[60] = 0x99, 0x01
	get := FieldGetRes{FieldID: 4}
	for i := range get.Value {
		get.Value[i] = byte(i)
	}
	return []Command{
		NodeInfoReq{},
		ann,
		HeartbeatReq{Counter: 5},
		HeartbeatRes{Counter: 0xFFFFFFFF},
		NewParameterSetReq(1, 99),
		conf,
		ParameterSetLockReq{ParameterID: 7, Lock: Locked},
		ParameterSetLockConfirmation{ParameterID: 7, Lock: Unlocked},
		FieldGetReq{FieldID: 4},
		get,
		NewFieldIDLookupReq("temperature"),
		FieldIDLookupRes{FieldID: 1, FieldType: 0},
	}
}

func TestRoundTripAllVariants(t *testing.T) {
	vs := allVariants()
	if len(vs) != len(Layouts()) {
		t.Fatalf("test covers %d variants, table has %d", len(vs), len(Layouts()))
	}
	for _, c := range vs {
		w := ToWire(c)
		if len(w) != protocol.FrameSize {
			t.Fatalf("%T: wire size %d, want %d", c, len(w), protocol.FrameSize)
		}
		got, err := FromWire(w)
		if err != nil {
			t.Fatalf("%T: FromWire: %v", c, err)
		}
		if got != c {
			t.Fatalf("%T: roundtrip got %#v want %#v", c, got, c)
		}
	}
}

func TestHeartbeatLayout(t *testing.T) {
	w := ToWire(HeartbeatReq{Counter: 0x01020304})
	if w[0] != 10 || w[1] != 0x04 || w[4] != 0x01 {
		t.Fatalf("unexpected layout % X", w[:6])
	}
	for i := 5; i < len(w); i++ {
		if w[i] != 0 {
			t.Fatalf("pad byte %d = 0x%02X", i, w[i])
		}
	}
}

func TestHelpers(t *testing.T) {
	if got := NewFieldIDLookupReq("rpm").Name(); got != "rpm" {
		t.Fatalf("Name() = %q", got)
	}
	var ann NodeInfoAnnouncement
	copy(ann.DeviceName[:], "pump")
	if ann.Name() != "pump" {
		t.Fatalf("Name() = %q", ann.Name())
	}
	req := NewParameterSetReq(2, 0xAABBCCDD)
	if req.Value[0] != 0xDD || req.Value[3] != 0xAA {
		t.Fatalf("value not little-endian: % X", req.Value[:4])
	}
	conf := ParameterSetConfirmation{Value: req.Value}
	if conf.U32() != 0xAABBCCDD {
		t.Fatalf("U32() = 0x%X", conf.U32())
	}
}

func TestFromWireErrors(t *testing.T) {
	if _, err := FromWire([]byte{2}); !errors.Is(err, protocol.ErrUnknownTag) {
		t.Fatalf("unknown tag: %v", err)
	}
	if _, err := FromWire([]byte{TagHeartbeatReq, 1}); !errors.Is(err, protocol.ErrShortPayload) {
		t.Fatalf("short heartbeat: %v", err)
	}
}

func TestIsResponse(t *testing.T) {
	want := map[uint8]bool{
		TagNodeInfoAnnouncement: true, TagHeartbeatRes: true, TagParameterSetConfirmation: true,
		TagParameterSetLockConfirmation: true, TagFieldGetRes: true, TagFieldIDLookupRes: true,
	}
	for _, c := range allVariants() {
		if IsResponse(c) != want[c.Tag()] {
			t.Fatalf("IsResponse(%s) = %v", Name(c.Tag()), IsResponse(c))
		}
	}
}
