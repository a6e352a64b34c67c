package dispatch

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notnil/ecuemu/canbus"
)

// receiveBackoff spaces out retries after a failed Receive.
const receiveBackoff = 10 * time.Millisecond

// Stats counts what a Server did with the frames it received.
type Stats struct {
	Received uint64
	Ignored  uint64
	Dropped  uint64
	Replied  uint64
	SendErrs uint64
}

// Server runs the receive, process, reply loop for one node. Frames are
// handled strictly in arrival order on the goroutine calling Serve.
type Server struct {
	bus     canbus.Bus
	engine  *Engine
	logger  *zap.Logger
	session uuid.UUID

	received, ignored, dropped, replied, sendErrs atomic.Uint64
}

// NewServer returns a server reading from bus. A nil logger disables
// logging.
func NewServer(bus canbus.Bus, engine *Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	session := uuid.New()
	return &Server{
		bus:     bus,
		engine:  engine,
		session: session,
		logger: logger.With(
			zap.String("session", session.String()),
			zap.Uint8("node_id", engine.Node()),
		),
	}
}

// Session returns the id tagging this server's log entries.
func (s *Server) Session() uuid.UUID { return s.session }

// Serve blocks until the bus is closed, then returns nil. Errors for a
// single frame or reply are logged and the loop continues.
func (s *Server) Serve() error {
	s.logger.Info("serving")
	defer s.logger.Info("stopped")
	for {
		f, err := s.bus.Receive()
		if errors.Is(err, canbus.ErrClosed) {
			return nil
		}
		if err != nil {
			s.logger.Error("receive failed", zap.Error(err))
			time.Sleep(receiveBackoff)
			continue
		}
		s.received.Add(1)
		s.handle(f)
	}
}

func (s *Server) handle(f canbus.Frame) {
	reply, ok, err := s.engine.Process(f)
	if err != nil {
		s.dropped.Add(1)
		s.logger.Warn("dropping frame", zap.Stringer("frame", f), zap.Error(err))
		return
	}
	if !ok {
		s.ignored.Add(1)
		return
	}
	if err := s.bus.Send(reply); err != nil {
		s.sendErrs.Add(1)
		s.logger.Error("reply send failed", zap.Stringer("frame", reply), zap.Error(err))
		return
	}
	s.replied.Add(1)
}

// Stats returns a snapshot of the frame counters.
func (s *Server) Stats() Stats {
	return Stats{
		Received: s.received.Load(),
		Ignored:  s.ignored.Load(),
		Dropped:  s.dropped.Load(),
		Replied:  s.replied.Load(),
		SendErrs: s.sendErrs.Load(),
	}
}
