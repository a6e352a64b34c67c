//go:build linux

package canbus

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// pollInterval bounds how long Receive waits before re-checking for Close.
const pollInterval = 100 // milliseconds

// socketCAN implements Bus over a Linux raw CAN socket with CAN FD frames
// enabled. Classical frames are still accepted and reported with FD=false.
type socketCAN struct {
	fd     int
	once   sync.Once
	closed chan struct{}
}

// DialSocketCAN opens a raw CAN socket bound to the given interface name
// (e.g., "can0" or "vcan0") and switches it to CAN FD mode.
func DialSocketCAN(iface string) (Bus, error) {
	netIf, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("canbus: interface %q: %w", iface, err)
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("canbus: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("canbus: enable CAN FD on %q: %w", iface, err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: netIf.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("canbus: bind %q: %w", iface, err)
	}
	// Non-blocking so Receive can observe Close.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &socketCAN{fd: fd, closed: make(chan struct{})}, nil
}

func (s *socketCAN) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *socketCAN) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = unix.Close(s.fd)
	})
	return err
}

// Send writes one frame using the can_frame or canfd_frame layout.
func (s *socketCAN) Send(frame Frame) error {
	buf, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	for {
		if s.isClosed() {
			return ErrClosed
		}
		n, werr := unix.Write(s.fd, buf)
		switch {
		case werr == nil:
			if n != len(buf) {
				return errors.New("canbus: short write")
			}
			return nil
		case errors.Is(werr, unix.EAGAIN), errors.Is(werr, unix.ENOBUFS):
			// TX queue full; wait for POLLOUT.
			if err := s.wait(unix.POLLOUT); err != nil {
				return err
			}
		case errors.Is(werr, unix.EINTR):
		default:
			return werr
		}
	}
}

// Receive reads one frame, blocking until one arrives or the socket closes.
func (s *socketCAN) Receive() (Frame, error) {
	buf := make([]byte, canFDFrameSize)
	for {
		if s.isClosed() {
			return Frame{}, ErrClosed
		}
		n, rerr := unix.Read(s.fd, buf)
		switch {
		case rerr == nil:
			if n != canFrameSize && n != canFDFrameSize {
				return Frame{}, fmt.Errorf("canbus: short read (%d bytes)", n)
			}
			var f Frame
			if err := f.UnmarshalBinary(buf[:n]); err != nil {
				return Frame{}, err
			}
			return f, nil
		case errors.Is(rerr, unix.EAGAIN), errors.Is(rerr, unix.EINTR):
			if err := s.wait(unix.POLLIN); err != nil {
				return Frame{}, err
			}
		default:
			if s.isClosed() {
				return Frame{}, ErrClosed
			}
			return Frame{}, rerr
		}
	}
}

// wait polls for the given event for at most pollInterval.
func (s *socketCAN) wait(events int16) error {
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: events}}
	_, err := unix.Poll(fds, pollInterval)
	if err != nil && !errors.Is(err, unix.EINTR) {
		if s.isClosed() {
			return ErrClosed
		}
		return err
	}
	return nil
}
