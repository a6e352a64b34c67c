package canbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Frame represents a classical CAN (2.0A/2.0B) or a CAN FD frame.
//
// Supported features:
//   - Standard (11-bit) and Extended (29-bit) identifiers
//   - Data frames and Remote Transmission Request (RTR, classical only)
//   - Data length 0-8 bytes (classical) or one of the CAN FD lengths up to 64
//   - Bit rate switch flag for CAN FD
type Frame struct {
	ID       uint32 // 11-bit (std) or 29-bit (ext)
	Extended bool   // true for 29-bit identifier
	RTR      bool   // remote transmission request
	FD       bool   // CAN FD frame
	BRS      bool   // bit rate switch (FD only)
	Len      uint8  // 0..8 classical, 0..64 FD
	Data     [MaxFDLen]byte
}

// Validation limits.
const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF

	// MaxLen is the payload limit of a classical frame.
	MaxLen = 8
	// MaxFDLen is the payload limit of a CAN FD frame.
	MaxFDLen = 64
)

// SocketCAN struct sizes.
const (
	canFrameSize   = 16 // struct can_frame
	canFDFrameSize = 72 // struct canfd_frame
)

const (
	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canEffMask = 0x1FFFFFFF
	canStdMask = 0x7FF

	canFDBRS = 0x01
)

var (
	ErrInvalidID  = errors.New("canbus: invalid identifier")
	ErrInvalidLen = errors.New("canbus: invalid data length")
)

// fdLengths lists the data lengths a CAN FD DLC can express.
var fdLengths = [...]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// ValidFDLen reports whether n can be expressed by a CAN FD DLC.
func ValidFDLen(n int) bool {
	for _, l := range fdLengths {
		if int(l) == n {
			return true
		}
	}
	return false
}

// Validate returns an error if the frame is not valid.
func (f Frame) Validate() error {
	if f.FD {
		if !ValidFDLen(int(f.Len)) || f.RTR {
			return ErrInvalidLen
		}
	} else if f.Len > MaxLen || f.BRS {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > maxExtID {
			return ErrInvalidID
		}
	} else {
		if f.ID > maxStdID {
			return ErrInvalidID
		}
	}
	return nil
}

// Payload returns the used part of Data.
func (f *Frame) Payload() []byte {
	return f.Data[:f.Len]
}

// MustFrame constructs a classical Frame and panics if invalid. Convenience for examples.
func MustFrame(id uint32, data []byte) Frame {
	var f Frame
	f.ID = id
	if id > maxStdID {
		f.Extended = true
	}
	if len(data) > MaxLen {
		panic(ErrInvalidLen)
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		panic(err)
	}
	return f
}

// MustFDFrame constructs a CAN FD Frame and panics if invalid.
func MustFDFrame(id uint32, data []byte) Frame {
	if !ValidFDLen(len(data)) {
		panic(ErrInvalidLen)
	}
	f := Frame{ID: id, FD: true, Len: uint8(len(data))}
	if id > maxStdID {
		f.Extended = true
	}
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		panic(err)
	}
	return f
}

// String formats the frame like candump: "123 [2] DE AD".
// FD frames carry an "FD" marker after the length.
func (f Frame) String() string {
	var b strings.Builder
	if f.Extended {
		fmt.Fprintf(&b, "%08X", f.ID)
	} else {
		fmt.Fprintf(&b, "%03X", f.ID)
	}
	fmt.Fprintf(&b, " [%d]", f.Len)
	if f.FD {
		b.WriteString(" FD")
		if f.BRS {
			b.WriteString(" BRS")
		}
	}
	if f.RTR {
		b.WriteString(" RTR")
		return b.String()
	}
	for _, c := range f.Data[:f.Len] {
		fmt.Fprintf(&b, " %02X", c)
	}
	return b.String()
}

// MarshalBinary encodes the frame to the Linux SocketCAN layout. Classical
// frames use "struct can_frame" (16 bytes), FD frames "struct canfd_frame"
// (72 bytes). Timestamps are not included.
//
// Layout (little-endian):
//
//	0..3  can_id (with flags: EFF/RTR/ERR)
//	4     can_dlc / len
//	5     flags (FD only: BRS, ESI)
//	6..7  reserved (zero)
//	8..   data bytes
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var id uint32 = f.ID
	if f.Extended {
		id |= canEffFlag
	}
	if f.RTR {
		id |= canRtrFlag
	}
	size, dataLen := canFrameSize, MaxLen
	if f.FD {
		size, dataLen = canFDFrameSize, MaxFDLen
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	if f.FD && f.BRS {
		buf[5] = canFDBRS
	}
	copy(buf[8:], f.Data[:dataLen])
	return buf, nil
}

// UnmarshalBinary decodes a frame from the Linux SocketCAN can_frame or
// canfd_frame layout, chosen by len(data).
func (f *Frame) UnmarshalBinary(data []byte) error {
	var fd bool
	switch {
	case len(data) >= canFDFrameSize:
		fd = true
	case len(data) >= canFrameSize:
	default:
		return fmt.Errorf("canbus: need %d or %d bytes, got %d", canFrameSize, canFDFrameSize, len(data))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	*f = Frame{FD: fd}
	f.Extended = id&canEffFlag != 0
	f.RTR = id&canRtrFlag != 0
	if f.Extended {
		f.ID = id & canEffMask
	} else {
		f.ID = id & canStdMask
	}
	f.Len = data[4]
	if fd {
		f.BRS = data[5]&canFDBRS != 0
		copy(f.Data[:], data[8:canFDFrameSize])
	} else {
		copy(f.Data[:MaxLen], data[8:canFrameSize])
	}
	return f.Validate()
}
