// Package liquid implements the node protocol used by liquid-style nodes:
// node info announcements, heartbeats, parameter writes and locks, and field
// reads. A command fills the whole 64-byte CAN FD payload.
package liquid

import (
	"fmt"

	"github.com/notnil/ecuemu/protocol"
)

// WireSize is the declared slot size: one tag byte plus 63 body bytes.
const WireSize = protocol.FrameSize

// Command tags.
const (
	TagNodeInfoReq                  uint8 = 0
	TagNodeInfoAnnouncement         uint8 = 1
	TagHeartbeatReq                 uint8 = 10
	TagHeartbeatRes                 uint8 = 11
	TagParameterSetReq              uint8 = 20
	TagParameterSetConfirmation     uint8 = 21
	TagParameterSetLockReq          uint8 = 22
	TagParameterSetLockConfirmation uint8 = 23
	TagFieldGetReq                  uint8 = 30
	TagFieldGetRes                  uint8 = 31
	TagFieldIDLookupReq             uint8 = 32
	TagFieldIDLookupRes             uint8 = 33
)

// Field widths.
const (
	DeviceNameSize     = 53
	ParameterValueSize = 61
	FieldValueSize     = 62
	FieldNameSize      = 62
)

// UnknownField is returned in both fields of a lookup response when no field
// carries the requested name.
const UnknownField uint8 = 0xFF

// Status is the outcome reported by a parameter set confirmation.
type Status uint8

const (
	StatusSuccess            Status = 0
	StatusInvalidParameterID Status = 1
	StatusParameterLocked    Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidParameterID:
		return "invalid-parameter-id"
	case StatusParameterLocked:
		return "parameter-locked"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Lock is a parameter lock state.
type Lock uint8

const (
	Unlocked Lock = 0
	Locked   Lock = 1
)

func (l Lock) String() string {
	switch l {
	case Unlocked:
		return "unlocked"
	case Locked:
		return "locked"
	default:
		return fmt.Sprintf("Lock(%d)", uint8(l))
	}
}

// Command is one liquid protocol variant.
type Command interface {
	protocol.Tagged
	isLiquid()
}

type NodeInfoReq struct{}

// NodeInfoAnnouncement describes the node: how many telemetry values and
// parameters it exposes, its firmware and protocol hashes and its name.
type NodeInfoAnnouncement struct {
	TelCount     uint8
	ParCount     uint8
	FirmwareHash uint32
	LiquidHash   uint32
	DeviceName   [DeviceNameSize]byte
}

type HeartbeatReq struct{ Counter uint32 }

type HeartbeatRes struct{ Counter uint32 }

// ParameterSetReq writes Value to a parameter. Only the first four bytes
// are applied, as a little-endian uint32.
type ParameterSetReq struct {
	ParameterID uint8
	Value       [ParameterValueSize]byte
}

type ParameterSetConfirmation struct {
	ParameterID uint8
	Status      Status
	Value       [ParameterValueSize]byte
}

type ParameterSetLockReq struct {
	ParameterID uint8
	Lock        Lock
}

type ParameterSetLockConfirmation struct {
	ParameterID uint8
	Lock        Lock
}

type FieldGetReq struct{ FieldID uint8 }

type FieldGetRes struct {
	FieldID uint8
	Value   [FieldValueSize]byte
}

// FieldIDLookupReq asks for the id of a field by name. The name is
// NUL-padded.
type FieldIDLookupReq struct {
	FieldName [FieldNameSize]byte
}

type FieldIDLookupRes struct {
	FieldID   uint8
	FieldType uint8
}

func (NodeInfoReq) Tag() uint8                  { return TagNodeInfoReq }
func (NodeInfoAnnouncement) Tag() uint8         { return TagNodeInfoAnnouncement }
func (HeartbeatReq) Tag() uint8                 { return TagHeartbeatReq }
func (HeartbeatRes) Tag() uint8                 { return TagHeartbeatRes }
func (ParameterSetReq) Tag() uint8              { return TagParameterSetReq }
func (ParameterSetConfirmation) Tag() uint8     { return TagParameterSetConfirmation }
func (ParameterSetLockReq) Tag() uint8          { return TagParameterSetLockReq }
func (ParameterSetLockConfirmation) Tag() uint8 { return TagParameterSetLockConfirmation }
func (FieldGetReq) Tag() uint8                  { return TagFieldGetReq }
func (FieldGetRes) Tag() uint8                  { return TagFieldGetRes }
func (FieldIDLookupReq) Tag() uint8             { return TagFieldIDLookupReq }
func (FieldIDLookupRes) Tag() uint8             { return TagFieldIDLookupRes }

func (NodeInfoReq) isLiquid()                  {}
func (NodeInfoAnnouncement) isLiquid()         {}
func (HeartbeatReq) isLiquid()                 {}
func (HeartbeatRes) isLiquid()                 {}
func (ParameterSetReq) isLiquid()              {}
func (ParameterSetConfirmation) isLiquid()     {}
func (ParameterSetLockReq) isLiquid()          {}
func (ParameterSetLockConfirmation) isLiquid() {}
func (FieldGetReq) isLiquid()                  {}
func (FieldGetRes) isLiquid()                  {}
func (FieldIDLookupReq) isLiquid()             {}
func (FieldIDLookupRes) isLiquid()             {}

// Name returns the NUL-trimmed device name.
func (a NodeInfoAnnouncement) Name() string { return trimNUL(a.DeviceName[:]) }

// Name returns the NUL-trimmed field name.
func (r FieldIDLookupReq) Name() string { return trimNUL(r.FieldName[:]) }

// NewFieldIDLookupReq builds a lookup request for name, truncated to
// FieldNameSize bytes.
func NewFieldIDLookupReq(name string) FieldIDLookupReq {
	var r FieldIDLookupReq
	copy(r.FieldName[:], name)
	return r
}

// NewParameterSetReq builds a request writing v as a little-endian uint32.
func NewParameterSetReq(id uint8, v uint32) ParameterSetReq {
	r := ParameterSetReq{ParameterID: id}
	protocol.PutU32(r.Value[:4], v)
	return r
}

// U32 returns the first four value bytes as a little-endian uint32.
func (c ParameterSetConfirmation) U32() uint32 { return protocol.U32(c.Value[:4]) }

// U32 returns the first four value bytes as a little-endian uint32.
func (r FieldGetRes) U32() uint32 { return protocol.U32(r.Value[:4]) }

// IsResponse reports whether c travels from a node to the master.
func IsResponse(c Command) bool {
	switch c.(type) {
	case NodeInfoAnnouncement, HeartbeatRes, ParameterSetConfirmation,
		ParameterSetLockConfirmation, FieldGetRes, FieldIDLookupRes:
		return true
	}
	return false
}

func trimNUL(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}
