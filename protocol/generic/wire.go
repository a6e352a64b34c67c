package generic

import "github.com/notnil/ecuemu/protocol"

func empty(tag uint8, name string, zero Command) protocol.Layout[Command] {
	return protocol.Layout[Command]{Tag: tag, Name: name, Pad: WireSize - 1, Zero: zero}
}

func setMsgLayout(tag uint8, name string, zero Command, wrap func(protocol.SetMsg) Command, unwrap func(Command) protocol.SetMsg) protocol.Layout[Command] {
	return protocol.Layout[Command]{
		Tag: tag, Name: name, Size: protocol.SetMsgSize, Pad: WireSize - 1 - protocol.SetMsgSize, Zero: zero,
		Put:   func(c Command, b []byte) { unwrap(c).Put(b) },
		Parse: func(b []byte) Command { return wrap(protocol.ParseSetMsg(b)) },
	}
}

var table = protocol.MustTable[Command]("GenericChannel", WireSize,
	empty(TagResetAllSettingsReq, "ResetAllSettingsReq", ResetAllSettingsReq{}),
	empty(TagResetAllSettingsRes, "ResetAllSettingsRes", ResetAllSettingsRes{}),
	empty(TagStatusReq, "StatusReq", StatusReq{}),
	empty(TagStatusRes, "StatusRes", StatusRes{}),
	setMsgLayout(TagSetVariableReq, "SetVariableReq", SetVariableReq{},
		func(m protocol.SetMsg) Command { return SetVariableReq{m} },
		func(c Command) protocol.SetMsg { return c.(SetVariableReq).SetMsg }),
	setMsgLayout(TagSetVariableRes, "SetVariableRes", SetVariableRes{},
		func(m protocol.SetMsg) Command { return SetVariableRes{m} },
		func(c Command) protocol.SetMsg { return c.(SetVariableRes).SetMsg }),
	protocol.Layout[Command]{
		Tag: TagGetVariableReq, Name: "GetVariableReq", Size: protocol.GetMsgSize,
		Pad: WireSize - 1 - protocol.GetMsgSize, Zero: GetVariableReq{},
		Put: func(c Command, b []byte) { b[0] = c.(GetVariableReq).VariableID },
		Parse: func(b []byte) Command {
			return GetVariableReq{protocol.GetMsg{VariableID: b[0]}}
		},
	},
	setMsgLayout(TagGetVariableRes, "GetVariableRes", GetVariableRes{},
		func(m protocol.SetMsg) Command { return GetVariableRes{m} },
		func(c Command) protocol.SetMsg { return c.(GetVariableRes).SetMsg }),
	empty(TagSyncClockReq, "SyncClockReq", SyncClockReq{}),
	empty(TagSyncClockRes, "SyncClockRes", SyncClockRes{}),
	empty(TagDataReq, "DataReq", DataReq{}),
	protocol.Layout[Command]{
		Tag: TagDataRes, Name: "DataRes", Size: HeartbeatDataSize,
		Pad: WireSize - 1 - HeartbeatDataSize, Zero: DataRes{},
		Put: func(c Command, b []byte) {
			d := c.(DataRes)
			protocol.PutU32(b[0:4], d.ChannelMask)
			copy(b[4:60], d.Data[:])
		},
		Parse: func(b []byte) Command {
			var d DataRes
			d.ChannelMask = protocol.U32(b[0:4])
			copy(d.Data[:], b[4:60])
			return d
		},
	},
	empty(TagNodeInfoReq, "NodeInfoReq", NodeInfoReq{}),
	protocol.Layout[Command]{
		Tag: TagNodeInfoRes, Name: "NodeInfoRes", Size: NodeInfoSize,
		Pad: WireSize - 1 - NodeInfoSize, Zero: NodeInfoRes{},
		Put: func(c Command, b []byte) {
			n := c.(NodeInfoRes)
			protocol.PutU32(b[0:4], n.FirmwareVersion)
			protocol.PutU32(b[4:8], n.ChannelMask)
			copy(b[8:40], n.ChannelType[:])
		},
		Parse: func(b []byte) Command {
			var n NodeInfoRes
			n.FirmwareVersion = protocol.U32(b[0:4])
			n.ChannelMask = protocol.U32(b[4:8])
			copy(n.ChannelType[:], b[8:40])
			return n
		},
	},
	empty(TagNodeStatusReq, "NodeStatusReq", NodeStatusReq{}),
	empty(TagNodeStatusRes, "NodeStatusRes", NodeStatusRes{}),
	empty(TagSpeakerReq, "SpeakerReq", SpeakerReq{}),
	empty(TagThresholdReq, "ThresholdReq", ThresholdReq{}),
	empty(TagFlashClearReq, "FlashClearReq", FlashClearReq{}),
	protocol.Layout[Command]{
		Tag: TagFlashStatusRes, Name: "FlashStatusRes", Size: FlashStatusSize,
		Pad: WireSize - 1 - FlashStatusSize, Zero: FlashStatusRes{},
		Put:   func(c Command, b []byte) { b[0] = uint8(c.(FlashStatusRes).Status) },
		Parse: func(b []byte) Command { return FlashStatusRes{Status: FlashStatus(b[0])} },
	},
)

// ToWire encodes c into its 63-byte tagged form.
func ToWire(c Command) []byte { return table.ToWire(c) }

// FromWire decodes a tagged GenericChannel command.
func FromWire(b []byte) (Command, error) { return table.FromWire(b) }

// Name returns the variant name for tag.
func Name(tag uint8) string { return table.Name(tag) }

// Layouts lists every registered variant.
func Layouts() []protocol.Layout[Command] { return table.Layouts() }

// Envelope wraps c for transmission on ChannelID.
func Envelope(c Command, buffer protocol.BufferType) protocol.Envelope {
	e, err := protocol.EnvelopeFromWire(ChannelID, buffer, ToWire(c))
	if err != nil {
		// ChannelID and the slot size are constants that always fit.
		panic(err)
	}
	return e
}

// FromEnvelope decodes the command carried by e.
func FromEnvelope(e protocol.Envelope) (Command, error) { return FromWire(e.Wire()) }
