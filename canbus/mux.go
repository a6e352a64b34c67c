package canbus

import (
	"sync"
)

// FrameFilter decides whether a frame should be delivered to a subscriber.
type FrameFilter func(Frame) bool

// Mux multiplexes frames from a Bus to any number of subscribers via filters.
//
// It owns the provided Bus for receiving and runs a single background
// goroutine that reads from Receive and fans frames out to subscribers, so
// request/response clients can wait for their replies without competing
// for Receive. Send is proxied unchanged to the underlying Bus.
type Mux struct {
	bus  Bus
	stop chan struct{}
	once sync.Once

	mu   sync.RWMutex
	subs map[uint64]*subscriber
	next uint64
}

type subscriber struct {
	filter FrameFilter
	ch     chan Frame
}

// NewMux creates and starts a multiplexer bound to the given Bus.
func NewMux(bus Bus) *Mux {
	m := &Mux{
		bus:  bus,
		stop: make(chan struct{}),
		subs: make(map[uint64]*subscriber),
	}
	go m.run()
	return m
}

// Send transmits a frame on the underlying Bus.
func (m *Mux) Send(frame Frame) error {
	return m.bus.Send(frame)
}

// Close stops fan-out and closes all subscriber channels. The underlying
// Bus stays open; the reader goroutine exits on its next Receive.
func (m *Mux) Close() error {
	m.once.Do(func() {
		close(m.stop)
		m.dropAll()
	})
	return nil
}

// Subscribe registers a new subscriber with the provided filter and channel
// buffer. A nil filter matches every frame. The cancel function closes the
// channel and may be called more than once.
func (m *Mux) Subscribe(filter FrameFilter, buffer int) (<-chan Frame, func()) {
	if buffer < 0 {
		buffer = 0
	}
	s := &subscriber{filter: filter, ch: make(chan Frame, buffer)}
	m.mu.Lock()
	id := m.next
	m.next++
	select {
	case <-m.stop:
		close(s.ch)
	default:
		m.subs[id] = s
	}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if cur, ok := m.subs[id]; ok && cur == s {
			close(cur.ch)
			delete(m.subs, id)
		}
		m.mu.Unlock()
	}
	return s.ch, cancel
}

func (m *Mux) dropAll() {
	m.mu.Lock()
	for id, s := range m.subs {
		close(s.ch)
		delete(m.subs, id)
	}
	m.mu.Unlock()
}

func (m *Mux) run() {
	for {
		f, err := m.bus.Receive()
		select {
		case <-m.stop:
			return
		default:
		}
		if err != nil {
			// The bus is gone; subscribers will never see another frame.
			m.dropAll()
			return
		}
		m.mu.RLock()
		for _, s := range m.subs {
			if s.filter != nil && !s.filter(f) {
				continue
			}
			select {
			case s.ch <- f:
			default:
				// Slow subscriber; drop.
			}
		}
		m.mu.RUnlock()
	}
}
