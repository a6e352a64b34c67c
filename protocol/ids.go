package protocol

import "fmt"

// Direction tells whether a message travels from the master to a node or back.
type Direction uint8

const (
	MasterToNode Direction = 0
	NodeToMaster Direction = 1
)

func (d Direction) String() string {
	switch d {
	case MasterToNode:
		return "master->node"
	case NodeToMaster:
		return "node->master"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// SpecialCommand marks messages handled outside the regular command flow.
type SpecialCommand uint8

const (
	SpecialAbort     SpecialCommand = 0
	SpecialClockSync SpecialCommand = 1
	SpecialInfo      SpecialCommand = 2
	SpecialStandard  SpecialCommand = 3
)

func (s SpecialCommand) String() string {
	switch s {
	case SpecialAbort:
		return "abort"
	case SpecialClockSync:
		return "clock-sync"
	case SpecialInfo:
		return "info"
	case SpecialStandard:
		return "standard"
	default:
		return fmt.Sprintf("SpecialCommand(%d)", uint8(s))
	}
}

// Priority is the message priority. Lower values win arbitration.
type Priority uint8

const (
	PriorityUrgent   Priority = 0
	PriorityHigh     Priority = 1
	PriorityStandard Priority = 2
	PriorityLow      Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityStandard:
		return "standard"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("Priority(%d)", uint8(p))
	}
}

// MaxNodeID is the highest node id a 6-bit field can carry.
const MaxNodeID = 63

// MaxArbitrationID is the largest standard (11-bit) CAN identifier.
const MaxArbitrationID = 0x7FF

// Bit layout of the packed identifier, LSB first.
const (
	dirShift     = 0
	dirMask      = 0x1
	nodeShift    = 1
	nodeMask     = 0x3F
	specialShift = 7
	specialMask  = 0x3
	prioShift    = 9
	prioMask     = 0x3
)

// MessageID is the logical identifier carried in the CAN arbitration field.
//
// Layout of the packed uint16:
//
//	bit0       direction
//	bits1-6    node id
//	bits7-8    special command
//	bits9-10   priority
//	bits11-15  reserved, zero
type MessageID struct {
	Direction Direction
	NodeID    uint8
	Special   SpecialCommand
	Priority  Priority
}

// NewMessageID builds a MessageID and checks every field range.
func NewMessageID(dir Direction, node uint8, special SpecialCommand, prio Priority) (MessageID, error) {
	m := MessageID{Direction: dir, NodeID: node, Special: special, Priority: prio}
	if err := m.Validate(); err != nil {
		return MessageID{}, err
	}
	return m, nil
}

// Validate returns ErrIDOutOfRange if any field does not fit its bit width.
func (m MessageID) Validate() error {
	switch {
	case uint8(m.Direction) > dirMask:
		return fmt.Errorf("%w: direction %d", ErrIDOutOfRange, m.Direction)
	case m.NodeID > nodeMask:
		return fmt.Errorf("%w: node id %d (valid 0..%d)", ErrIDOutOfRange, m.NodeID, MaxNodeID)
	case uint8(m.Special) > specialMask:
		return fmt.Errorf("%w: special command %d", ErrIDOutOfRange, m.Special)
	case uint8(m.Priority) > prioMask:
		return fmt.Errorf("%w: priority %d", ErrIDOutOfRange, m.Priority)
	}
	return nil
}

// Encode packs the identifier. Out-of-range fields are an error rather than
// being truncated into their neighbours.
func (m MessageID) Encode() (uint16, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	return uint16(m.Direction)<<dirShift |
		uint16(m.NodeID)<<nodeShift |
		uint16(m.Special)<<specialShift |
		uint16(m.Priority)<<prioShift, nil
}

// ArbitrationID returns the packed identifier as an 11-bit CAN identifier.
func (m MessageID) ArbitrationID() (uint32, error) {
	v, err := m.Encode()
	if err != nil {
		return 0, err
	}
	if v > MaxArbitrationID {
		return 0, fmt.Errorf("%w: 0x%X exceeds 0x%X", ErrIDOutOfRange, v, MaxArbitrationID)
	}
	return uint32(v), nil
}

// DecodeMessageID extracts the fields of a packed identifier. Reserved bits
// are ignored.
func DecodeMessageID(v uint16) MessageID {
	return MessageID{
		Direction: Direction(v >> dirShift & dirMask),
		NodeID:    uint8(v >> nodeShift & nodeMask),
		Special:   SpecialCommand(v >> specialShift & specialMask),
		Priority:  Priority(v >> prioShift & prioMask),
	}
}

// Reply returns the identifier a node uses to answer m: direction flipped to
// NodeToMaster, node id set to the responding node, special command and
// priority kept.
func (m MessageID) Reply(node uint8) MessageID {
	return MessageID{Direction: NodeToMaster, NodeID: node, Special: m.Special, Priority: m.Priority}
}

func (m MessageID) String() string {
	return fmt.Sprintf("%s node=%d special=%s prio=%s", m.Direction, m.NodeID, m.Special, m.Priority)
}
