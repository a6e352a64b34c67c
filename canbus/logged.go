package canbus

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogOption is a bitmask for selecting which operations to log.
type LogOption uint8

const (
	LogNone  LogOption = 0
	LogRead  LogOption = 1
	LogWrite LogOption = 2
	LogAll             = LogRead | LogWrite
)

// NewLoggedBus wraps the given Bus and logs selected operations at the given
// level. Errors are always logged at error level.
func NewLoggedBus(inner Bus, logger *zap.Logger, level zapcore.Level, opts LogOption) Bus {
	return NewLoggedBusWithFilter(inner, logger, level, opts, nil)
}

// NewLoggedBusWithFilter is NewLoggedBus restricted to frames that satisfy
// filter. A nil filter logs every frame.
func NewLoggedBusWithFilter(inner Bus, logger *zap.Logger, level zapcore.Level, opts LogOption, filter FrameFilter) Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggedBus{
		inner:  inner,
		logger: logger.Named("canbus"),
		level:  level,
		opts:   opts,
		filter: filter,
	}
}

type loggedBus struct {
	inner  Bus
	logger *zap.Logger
	level  zapcore.Level
	opts   LogOption
	filter FrameFilter
}

func frameFields(f Frame) []zap.Field {
	return []zap.Field{
		zap.Uint32("id", f.ID),
		zap.Bool("extended", f.Extended),
		zap.Bool("fd", f.FD),
		zap.Int("len", int(f.Len)),
		zap.Binary("data", f.Data[:f.Len]),
		zap.Stringer("frame", f),
	}
}

func (l *loggedBus) wants(f Frame) bool {
	return l.filter == nil || l.filter(f)
}

// Send logs the frame and the result when write logging is enabled.
func (l *loggedBus) Send(frame Frame) error {
	logging := l.opts&LogWrite != 0
	if logging && l.wants(frame) {
		if ce := l.logger.Check(l.level, "canbus send"); ce != nil {
			ce.Write(frameFields(frame)...)
		}
	}
	err := l.inner.Send(frame)
	if logging && err != nil {
		l.logger.Error("canbus send error", zap.Uint32("id", frame.ID), zap.Error(err))
	}
	return err
}

// Receive logs the received frame or error when read logging is enabled.
func (l *loggedBus) Receive() (Frame, error) {
	f, err := l.inner.Receive()
	if l.opts&LogRead == 0 {
		return f, err
	}
	switch {
	case err != nil:
		l.logger.Error("canbus receive error", zap.Error(err))
	case l.wants(f):
		if ce := l.logger.Check(l.level, "canbus receive"); ce != nil {
			ce.Write(frameFields(f)...)
		}
	}
	return f, err
}

// Close forwards to the inner Bus without logging.
func (l *loggedBus) Close() error {
	return l.inner.Close()
}
