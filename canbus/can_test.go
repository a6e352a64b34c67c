package canbus

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestLoopbackBus_SendReceive_MultiEndpoint(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()

	a := bus.Open()
	b := bus.Open()
	c := bus.Open()
	defer a.Close()
	defer b.Close()
	defer c.Close()

	send := MustFDFrame(0x321, bytes.Repeat([]byte{0x5A}, 64))

	done := make(chan error, 1)
	go func() { done <- a.Send(send) }()

	for name, ep := range map[string]Bus{"b": b, "c": c} {
		got, err := ep.Receive()
		if err != nil {
			t.Fatalf("receive %s: %v", name, err)
		}
		if got != send {
			t.Fatalf("%s mismatch: got %v want %v", name, got, send)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestLoopbackBus_SenderDoesNotHearItself(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	a := bus.Open()
	b := bus.Open()

	if err := a.Send(MustFrame(0x10, []byte{1})); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := b.Receive(); err != nil {
		t.Fatalf("receive: %v", err)
	}
	_ = a.Close()
	if _, err := a.Receive(); !errors.Is(err, ErrClosed) {
		t.Fatalf("sender queue should be empty and closed, got %v", err)
	}
}

func TestLoopbackBus_CloseBehavior(t *testing.T) {
	bus := NewLoopbackBus()
	a := bus.Open()
	b := bus.Open()

	_ = a.Close()
	if _, err := a.Receive(); !errors.Is(err, ErrClosed) {
		t.Fatalf("closed endpoint should return ErrClosed on Receive, got %v", err)
	}
	if err := a.Send(MustFrame(0x1, nil)); !errors.Is(err, ErrClosed) {
		t.Fatalf("closed endpoint should return ErrClosed on Send, got %v", err)
	}

	_ = bus.Close()
	if _, err := b.Receive(); !errors.Is(err, ErrClosed) {
		t.Fatalf("endpoint should error after bus close, got %v", err)
	}
	if err := b.Send(MustFrame(0x1, nil)); !errors.Is(err, ErrClosed) {
		t.Fatalf("endpoint should error on Send after bus close, got %v", err)
	}
	late := bus.Open()
	if _, err := late.Receive(); !errors.Is(err, ErrClosed) {
		t.Fatalf("endpoint opened after close should be closed, got %v", err)
	}
}

func TestLoopbackBus_RejectsInvalidFrame(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	a := bus.Open()
	if err := a.Send(Frame{ID: 0x800}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("want ErrInvalidID, got %v", err)
	}
}

func TestFilters_Basics(t *testing.T) {
	f1 := MustFrame(0x100, []byte{1})
	f2 := MustFrame(0x101, []byte{2})
	f3 := Frame{ID: 0x1ABCDEFF, Extended: true, Len: 0}
	fd := MustFDFrame(0x100, make([]byte, 64))

	if !ByID(0x100)(f1) || ByID(0x100)(f2) {
		t.Fatalf("ByID failure")
	}
	if !ByIDs(0x100, 0x102)(f1) || ByIDs(0x100, 0x102)(f2) {
		t.Fatalf("ByIDs failure")
	}
	if !ByRange(0x1FF, 0x100)(f2) || ByRange(0x200, 0x2FF)(f2) {
		t.Fatalf("ByRange failure")
	}
	if !ByMask(0x100, 0x7FF)(f1) || ByMask(0x100, 0x7FF)(f2) {
		t.Fatalf("ByMask failure")
	}
	if !StandardOnly()(f1) || StandardOnly()(f3) {
		t.Fatalf("StandardOnly failure")
	}
	if !ExtendedOnly()(f3) || ExtendedOnly()(f1) {
		t.Fatalf("ExtendedOnly failure")
	}
	if !FDOnly()(fd) || FDOnly()(f1) || !ClassicOnly()(f1) || ClassicOnly()(fd) {
		t.Fatalf("FD filters failure")
	}
	if !LenExactly(64)(fd) || LenExactly(64)(f1) {
		t.Fatalf("LenExactly failure")
	}
	rtr := f1
	rtr.RTR = true
	if !DataOnly()(f1) || DataOnly()(rtr) || !RTROnly()(rtr) {
		t.Fatalf("DataOnly/RTROnly failure")
	}
	if !And(ByID(0x100), nil, DataOnly())(f1) || And(ByID(0x100), DataOnly())(rtr) {
		t.Fatalf("And failure")
	}
	if !Or(ByID(0x100), ByID(0x999))(f1) || Or(ByID(0x999), ByID(0x998))(f1) {
		t.Fatalf("Or failure")
	}
	if Not(ByID(0x100))(f1) || !Not(ByID(0x999))(f1) {
		t.Fatalf("Not failure")
	}
}

func TestMux_Subscribe_Filtering_And_Close(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	m := NewMux(bus.Open())
	defer m.Close()

	chA, cancelA := m.Subscribe(ByID(0x100), 1)
	chB, cancelB := m.Subscribe(ByRange(0x200, 0x2FF), 2)
	defer cancelB()

	producer := bus.Open()
	defer producer.Close()

	send := func(id uint32) { _ = producer.Send(MustFrame(id, []byte{1, 2, 3})) }

	send(0x100) // A
	send(0x210) // B
	send(0x105) // nobody

	select {
	case f := <-chA:
		if f.ID != 0x100 {
			t.Fatalf("A got %03X", f.ID)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for A")
	}
	select {
	case f := <-chB:
		if f.ID != 0x210 {
			t.Fatalf("B got %03X", f.ID)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for B")
	}
	select {
	case f := <-chA:
		t.Fatalf("A should be empty, got %03X", f.ID)
	case <-time.After(100 * time.Millisecond):
	}

	cancelA()
	cancelA()
	send(0x100)
	select {
	case _, ok := <-chA:
		if ok {
			t.Fatalf("A should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("A should be closed after cancel")
	}

	_ = m.Close()
	if _, ok := <-chB; ok {
		t.Fatalf("B should be closed after mux close")
	}
	late, _ := m.Subscribe(nil, 1)
	if _, ok := <-late; ok {
		t.Fatalf("subscription after close should be closed")
	}
}

func TestMux_SendProxiesToBus(t *testing.T) {
	bus := NewLoopbackBus()
	defer bus.Close()
	m := NewMux(bus.Open())
	defer m.Close()
	peer := bus.Open()

	want := MustFDFrame(0x42, make([]byte, 12))
	if err := m.Send(want); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := peer.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}
