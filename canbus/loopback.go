package canbus

import (
	"sync"
)

// DefaultLoopbackQueue is the per-endpoint receive queue depth.
const DefaultLoopbackQueue = 64

// LoopbackBus is an in-memory CAN bus for tests and simulations.
// Multiple endpoints opened from the same bus can exchange frames; a frame
// sent by one endpoint is delivered to every other endpoint.
type LoopbackBus struct {
	mu        sync.RWMutex
	closed    bool
	queue     int
	endpoints map[*loopEndpoint]struct{}
}

// NewLoopbackBus creates a new loopback bus.
func NewLoopbackBus() *LoopbackBus {
	return NewLoopbackBusSize(DefaultLoopbackQueue)
}

// NewLoopbackBusSize creates a loopback bus whose endpoints buffer up to
// queue frames before Send blocks.
func NewLoopbackBusSize(queue int) *LoopbackBus {
	if queue < 0 {
		queue = 0
	}
	return &LoopbackBus{queue: queue, endpoints: make(map[*loopEndpoint]struct{})}
}

// Open creates a new endpoint attached to the bus. Endpoints opened after
// the bus was closed are already closed.
func (b *LoopbackBus) Open() Bus {
	ep := &loopEndpoint{
		bus:    b,
		ch:     make(chan Frame, b.queue),
		closed: make(chan struct{}),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ep.shutdown()
		return ep
	}
	b.endpoints[ep] = struct{}{}
	return ep
}

// Close closes the bus and detaches all endpoints.
func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for ep := range b.endpoints {
		ep.shutdown()
	}
	b.endpoints = nil
	return nil
}

// peers snapshots every open endpoint except from.
func (b *LoopbackBus) peers(from *loopEndpoint) ([]*loopEndpoint, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	out := make([]*loopEndpoint, 0, len(b.endpoints))
	for ep := range b.endpoints {
		if ep != from {
			out = append(out, ep)
		}
	}
	return out, nil
}

type loopEndpoint struct {
	bus    *LoopbackBus
	ch     chan Frame
	mu     sync.RWMutex
	once   sync.Once
	closed chan struct{}
}

// Send broadcasts the frame to all other endpoints on the same bus.
func (e *loopEndpoint) Send(frame Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	select {
	case <-e.closed:
		return ErrClosed
	default:
	}
	targets, err := e.bus.peers(e)
	if err != nil {
		return err
	}
	for _, t := range targets {
		t.deliver(frame)
	}
	return nil
}

// deliver blocks until the frame is queued or the endpoint closes.
// The queue is only closed under the write lock, so holding the read lock
// keeps it open for the duration of the send.
func (e *loopEndpoint) deliver(frame Frame) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	select {
	case <-e.closed:
		return
	default:
	}
	select {
	case <-e.closed:
	case e.ch <- frame:
	}
}

// Receive waits for the next frame.
func (e *loopEndpoint) Receive() (Frame, error) {
	f, ok := <-e.ch
	if !ok {
		return Frame{}, ErrClosed
	}
	return f, nil
}

// Close detaches the endpoint from the bus and closes its queue.
func (e *loopEndpoint) Close() error {
	e.bus.mu.Lock()
	if e.bus.endpoints != nil {
		delete(e.bus.endpoints, e)
	}
	e.bus.mu.Unlock()
	e.shutdown()
	return nil
}

func (e *loopEndpoint) shutdown() {
	e.once.Do(func() {
		close(e.closed)
		e.mu.Lock()
		close(e.ch)
		e.mu.Unlock()
	})
}
