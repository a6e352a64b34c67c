//go:build linux

package canbus

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

// Linux network interface helpers. These toggle IFF_UP via ioctl on a
// SOCK_DGRAM socket.
//
// Bringing interfaces up/down requires CAP_NET_ADMIN. Without sufficient
// privileges they return EPERM.

const ifNameSize = unix.IFNAMSIZ

func checkIfaceName(name string) error {
	if len(name) == 0 || len(name) >= ifNameSize {
		return fmt.Errorf("canbus: invalid interface name %q", name)
	}
	return nil
}

func interfaceFlags(name string) (uint16, error) {
	if err := checkIfaceName(name); err != nil {
		return 0, err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(fd)
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return 0, err
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return 0, err
	}
	return ifr.Uint16(), nil
}

func setInterfaceFlags(name string, flags uint16) error {
	if err := checkIfaceName(name); err != nil {
		return err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return err
	}
	ifr.SetUint16(flags)
	return unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr)
}

// IsInterfaceUp returns true if the Linux network interface has IFF_UP set.
func IsInterfaceUp(name string) (bool, error) {
	flags, err := interfaceFlags(name)
	if err != nil {
		return false, err
	}
	return flags&unix.IFF_UP != 0, nil
}

// SetInterfaceUp sets IFF_UP on the given interface. Requires CAP_NET_ADMIN.
func SetInterfaceUp(name string) error {
	flags, err := interfaceFlags(name)
	if err != nil {
		return err
	}
	if flags&unix.IFF_UP != 0 {
		return nil
	}
	return RequireRootOrCapNetAdmin(setInterfaceFlags(name, flags|unix.IFF_UP))
}

// SetInterfaceDown clears IFF_UP on the given interface. Requires CAP_NET_ADMIN.
func SetInterfaceDown(name string) error {
	flags, err := interfaceFlags(name)
	if err != nil {
		return err
	}
	if flags&unix.IFF_UP == 0 {
		return nil
	}
	return RequireRootOrCapNetAdmin(setInterfaceFlags(name, flags&^unix.IFF_UP))
}

// RequireRootOrCapNetAdmin maps EPERM to an error advising to grant
// CAP_NET_ADMIN to the binary. Other errors (and nil) pass through.
func RequireRootOrCapNetAdmin(err error) error {
	if errors.Is(err, unix.EPERM) {
		return fmt.Errorf("operation requires CAP_NET_ADMIN (or root): %w", err)
	}
	return err
}

// LinuxCANInterfaceOptions controls CAN interface parameters applied through
// the system `ip` tool. Bit rates can usually only change while the
// interface is DOWN. Virtual (vcan) interfaces ignore bit rates entirely.
type LinuxCANInterfaceOptions struct {
	// Bitrate sets the arbitration bit rate in bits per second. Zero leaves it unchanged.
	Bitrate uint32

	// DataBitrate sets the CAN FD data phase bit rate. Non-zero implies "fd on".
	DataBitrate uint32

	// RestartMs sets automatic bus-off recovery delay. Nil leaves it unchanged.
	RestartMs *uint32

	// TxQueueLen sets the transmit queue length. Zero leaves it unchanged.
	TxQueueLen int
}

// Empty reports whether no option is set.
func (o LinuxCANInterfaceOptions) Empty() bool {
	return o.Bitrate == 0 && o.DataBitrate == 0 && o.RestartMs == nil && o.TxQueueLen == 0
}

// ConfigureLinuxCANInterface applies the non-zero options to a Linux CAN
// network interface by invoking iproute2. Requires CAP_NET_ADMIN.
func ConfigureLinuxCANInterface(name string, opts LinuxCANInterfaceOptions) error {
	if err := checkIfaceName(name); err != nil {
		return err
	}
	if opts.TxQueueLen != 0 {
		if err := runIP("link", "set", "dev", name, "txqueuelen", strconv.Itoa(opts.TxQueueLen)); err != nil {
			return err
		}
	}
	args := []string{"link", "set", "dev", name, "type", "can"}
	base := len(args)
	if opts.Bitrate != 0 {
		args = append(args, "bitrate", strconv.FormatUint(uint64(opts.Bitrate), 10))
	}
	if opts.DataBitrate != 0 {
		args = append(args, "dbitrate", strconv.FormatUint(uint64(opts.DataBitrate), 10), "fd", "on")
	}
	if opts.RestartMs != nil {
		args = append(args, "restart-ms", strconv.FormatUint(uint64(*opts.RestartMs), 10))
	}
	if len(args) == base {
		return nil
	}
	return runIP(args...)
}

func runIP(args ...string) error {
	out, err := exec.Command("ip", args...).CombinedOutput()
	if err != nil {
		return RequireRootOrCapNetAdmin(fmt.Errorf("ip %v failed: %w; output: %s", args, err, string(out)))
	}
	return nil
}
