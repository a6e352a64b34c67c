// Package generic implements the GenericChannel command family: the
// variables, heartbeat data, node info and flash commands every node exposes
// on channel 5.
package generic

import "github.com/notnil/ecuemu/protocol"

// ChannelID is the envelope channel GenericChannel commands travel on.
const ChannelID uint8 = 5

// WireSize is the declared slot size of a GenericChannel command: tag byte
// plus the 62-byte envelope payload.
const WireSize = protocol.WireSize

// Command tags. The first eight alias the common command numbers.
const (
	TagResetAllSettingsReq = protocol.CommonReqResetSettings
	TagResetAllSettingsRes = protocol.CommonResResetSettings
	TagStatusReq           = protocol.CommonReqStatus
	TagStatusRes           = protocol.CommonResStatus
	TagSetVariableReq      = protocol.CommonReqSetVariable
	TagSetVariableRes      = protocol.CommonResSetVariable
	TagGetVariableReq      = protocol.CommonReqGetVariable
	TagGetVariableRes      = protocol.CommonResGetVariable
	TagSyncClockReq        = protocol.CommonTotalCmds
	TagSyncClockRes        = protocol.CommonTotalCmds + 1
	TagDataReq             = protocol.CommonTotalCmds + 2
	TagDataRes             = protocol.CommonTotalCmds + 3
	TagNodeInfoReq         = protocol.CommonTotalCmds + 4
	TagNodeInfoRes         = protocol.CommonTotalCmds + 5
	TagNodeStatusReq       = protocol.CommonTotalCmds + 6
	TagNodeStatusRes       = protocol.CommonTotalCmds + 7
	TagSpeakerReq          = protocol.CommonTotalCmds + 8
	TagThresholdReq        = protocol.CommonTotalCmds + 9
	TagFlashClearReq       = protocol.CommonTotalCmds + 10
	TagFlashStatusRes      = protocol.CommonTotalCmds + 11
)

// Command is one GenericChannel command variant.
type Command interface {
	protocol.Tagged
	isGeneric()
}

// Payload sizes.
const (
	HeartbeatDataSize = 4 + 56
	NodeInfoSize      = 4 + 4 + 32
	FlashStatusSize   = 1
)

// HeartbeatData carries the channel mask and the raw data block returned by
// a data request.
type HeartbeatData struct {
	ChannelMask uint32
	Data        [56]byte
}

// NodeInfo describes the node firmware and its channels.
type NodeInfo struct {
	FirmwareVersion uint32
	ChannelMask     uint32
	ChannelType     [32]byte
}

// FlashStatus reports the state of the flash storage.
type FlashStatus uint8

const (
	FlashInitiated FlashStatus = 0
	FlashCompleted FlashStatus = 1
	FlashFull      FlashStatus = 2
)

func (s FlashStatus) String() string {
	switch s {
	case FlashInitiated:
		return "initiated"
	case FlashCompleted:
		return "completed"
	case FlashFull:
		return "full"
	default:
		return "unknown"
	}
}

type (
	ResetAllSettingsReq struct{}
	ResetAllSettingsRes struct{}
	StatusReq           struct{}
	StatusRes           struct{}
	SetVariableReq      struct{ protocol.SetMsg }
	SetVariableRes      struct{ protocol.SetMsg }
	GetVariableReq      struct{ protocol.GetMsg }
	GetVariableRes      struct{ protocol.SetMsg }
	SyncClockReq        struct{}
	SyncClockRes        struct{}
	DataReq             struct{}
	DataRes             struct{ HeartbeatData }
	NodeInfoReq         struct{}
	NodeInfoRes         struct{ NodeInfo }
	NodeStatusReq       struct{}
	NodeStatusRes       struct{}
	SpeakerReq          struct{}
	ThresholdReq        struct{}
	FlashClearReq       struct{}
	FlashStatusRes      struct{ Status FlashStatus }
)

func (ResetAllSettingsReq) Tag() uint8 { return TagResetAllSettingsReq }
func (ResetAllSettingsRes) Tag() uint8 { return TagResetAllSettingsRes }
func (StatusReq) Tag() uint8           { return TagStatusReq }
func (StatusRes) Tag() uint8           { return TagStatusRes }
func (SetVariableReq) Tag() uint8      { return TagSetVariableReq }
func (SetVariableRes) Tag() uint8      { return TagSetVariableRes }
func (GetVariableReq) Tag() uint8      { return TagGetVariableReq }
func (GetVariableRes) Tag() uint8      { return TagGetVariableRes }
func (SyncClockReq) Tag() uint8        { return TagSyncClockReq }
func (SyncClockRes) Tag() uint8        { return TagSyncClockRes }
func (DataReq) Tag() uint8             { return TagDataReq }
func (DataRes) Tag() uint8             { return TagDataRes }
func (NodeInfoReq) Tag() uint8         { return TagNodeInfoReq }
func (NodeInfoRes) Tag() uint8         { return TagNodeInfoRes }
func (NodeStatusReq) Tag() uint8       { return TagNodeStatusReq }
func (NodeStatusRes) Tag() uint8       { return TagNodeStatusRes }
func (SpeakerReq) Tag() uint8          { return TagSpeakerReq }
func (ThresholdReq) Tag() uint8        { return TagThresholdReq }
func (FlashClearReq) Tag() uint8       { return TagFlashClearReq }
func (FlashStatusRes) Tag() uint8      { return TagFlashStatusRes }

func (ResetAllSettingsReq) isGeneric() {}
func (ResetAllSettingsRes) isGeneric() {}
func (StatusReq) isGeneric()           {}
func (StatusRes) isGeneric()           {}
func (SetVariableReq) isGeneric()      {}
func (SetVariableRes) isGeneric()      {}
func (GetVariableReq) isGeneric()      {}
func (GetVariableRes) isGeneric()      {}
func (SyncClockReq) isGeneric()        {}
func (SyncClockRes) isGeneric()        {}
func (DataReq) isGeneric()             {}
func (DataRes) isGeneric()             {}
func (NodeInfoReq) isGeneric()         {}
func (NodeInfoRes) isGeneric()         {}
func (NodeStatusReq) isGeneric()       {}
func (NodeStatusRes) isGeneric()       {}
func (SpeakerReq) isGeneric()          {}
func (ThresholdReq) isGeneric()        {}
func (FlashClearReq) isGeneric()       {}
func (FlashStatusRes) isGeneric()      {}

// IsResponse reports whether c travels from a node to the master.
func IsResponse(c Command) bool {
	switch c.(type) {
	case ResetAllSettingsRes, StatusRes, SetVariableRes, GetVariableRes,
		SyncClockRes, DataRes, NodeInfoRes, NodeStatusRes, FlashStatusRes:
		return true
	}
	return false
}
