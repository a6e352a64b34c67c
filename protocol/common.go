package protocol

// Common command numbers. Channel families reuse these values for their
// own reset/status/variable commands so a master can address any channel
// with the same ids.
const (
	CommonReqResetSettings uint8 = 0
	CommonResResetSettings uint8 = 1
	CommonReqStatus        uint8 = 2
	CommonResStatus        uint8 = 3
	CommonReqSetVariable   uint8 = 4
	CommonResSetVariable   uint8 = 5
	CommonReqGetVariable   uint8 = 6
	CommonResGetVariable   uint8 = 7
	// CommonTotalCmds is the first number free for channel specific commands.
	CommonTotalCmds uint8 = 8
)

// SetMsg carries a variable id and its value. Used by set requests and by
// set/get responses. Wire size 5: id, value (little-endian).
type SetMsg struct {
	VariableID uint8
	Value      uint32
}

// SetMsgSize is the encoded size of SetMsg.
const SetMsgSize = 5

// Put encodes m into b[0:5].
func (m SetMsg) Put(b []byte) {
	b[0] = m.VariableID
	PutU32(b[1:5], m.Value)
}

// ParseSetMsg decodes a SetMsg from b[0:5].
func ParseSetMsg(b []byte) SetMsg {
	return SetMsg{VariableID: b[0], Value: U32(b[1:5])}
}

// GetMsg names the variable a get request asks for. Wire size 1.
type GetMsg struct {
	VariableID uint8
}

// GetMsgSize is the encoded size of GetMsg.
const GetMsgSize = 1
