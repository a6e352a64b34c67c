package liquid

import "github.com/notnil/ecuemu/protocol"

const (
	nodeInfoSize     = 1 + 1 + 4 + 4 + DeviceNameSize
	heartbeatSize    = 4
	paramSetSize     = 1 + ParameterValueSize
	paramConfirmSize = 1 + 1 + ParameterValueSize
	paramLockSize    = 2
	fieldGetSize     = 1
	fieldGetResSize  = 1 + FieldValueSize
	lookupReqSize    = FieldNameSize
	lookupResSize    = 2
)

func pad(size int) int { return WireSize - 1 - size }

var table = protocol.MustTable[Command]("Liquid", WireSize,
	protocol.Layout[Command]{Tag: TagNodeInfoReq, Name: "NodeInfoReq", Pad: pad(0), Zero: NodeInfoReq{}},
	protocol.Layout[Command]{
		Tag: TagNodeInfoAnnouncement, Name: "NodeInfoAnnouncement",
		Size: nodeInfoSize, Pad: pad(nodeInfoSize), Zero: NodeInfoAnnouncement{},
		Put: func(c Command, b []byte) {
			a := c.(NodeInfoAnnouncement)
			b[0] = a.TelCount
			b[1] = a.ParCount
			protocol.PutU32(b[2:6], a.FirmwareHash)
			protocol.PutU32(b[6:10], a.LiquidHash)
			copy(b[10:], a.DeviceName[:])
		},
		Parse: func(b []byte) Command {
			a := NodeInfoAnnouncement{
				TelCount:     b[0],
				ParCount:     b[1],
				FirmwareHash: protocol.U32(b[2:6]),
				LiquidHash:   protocol.U32(b[6:10]),
			}
			copy(a.DeviceName[:], b[10:])
			return a
		},
	},
	protocol.Layout[Command]{
		Tag: TagHeartbeatReq, Name: "HeartbeatReq",
		Size: heartbeatSize, Pad: pad(heartbeatSize), Zero: HeartbeatReq{},
		Put:   func(c Command, b []byte) { protocol.PutU32(b, c.(HeartbeatReq).Counter) },
		Parse: func(b []byte) Command { return HeartbeatReq{Counter: protocol.U32(b)} },
	},
	protocol.Layout[Command]{
		Tag: TagHeartbeatRes, Name: "HeartbeatRes",
		Size: heartbeatSize, Pad: pad(heartbeatSize), Zero: HeartbeatRes{},
		Put:   func(c Command, b []byte) { protocol.PutU32(b, c.(HeartbeatRes).Counter) },
		Parse: func(b []byte) Command { return HeartbeatRes{Counter: protocol.U32(b)} },
	},
	protocol.Layout[Command]{
		Tag: TagParameterSetReq, Name: "ParameterSetReq",
		Size: paramSetSize, Pad: pad(paramSetSize), Zero: ParameterSetReq{},
		Put: func(c Command, b []byte) {
			r := c.(ParameterSetReq)
			b[0] = r.ParameterID
			copy(b[1:], r.Value[:])
		},
		Parse: func(b []byte) Command {
			r := ParameterSetReq{ParameterID: b[0]}
			copy(r.Value[:], b[1:])
			return r
		},
	},
	protocol.Layout[Command]{
		Tag: TagParameterSetConfirmation, Name: "ParameterSetConfirmation",
		Size: paramConfirmSize, Pad: pad(paramConfirmSize), Zero: ParameterSetConfirmation{},
		Put: func(c Command, b []byte) {
			r := c.(ParameterSetConfirmation)
			b[0] = r.ParameterID
			b[1] = uint8(r.Status)
			copy(b[2:], r.Value[:])
		},
		Parse: func(b []byte) Command {
			r := ParameterSetConfirmation{ParameterID: b[0], Status: Status(b[1])}
			copy(r.Value[:], b[2:])
			return r
		},
	},
	protocol.Layout[Command]{
		Tag: TagParameterSetLockReq, Name: "ParameterSetLockReq",
		Size: paramLockSize, Pad: pad(paramLockSize), Zero: ParameterSetLockReq{},
		Put: func(c Command, b []byte) {
			r := c.(ParameterSetLockReq)
			b[0], b[1] = r.ParameterID, uint8(r.Lock)
		},
		Parse: func(b []byte) Command { return ParameterSetLockReq{ParameterID: b[0], Lock: Lock(b[1])} },
	},
	protocol.Layout[Command]{
		Tag: TagParameterSetLockConfirmation, Name: "ParameterSetLockConfirmation",
		Size: paramLockSize, Pad: pad(paramLockSize), Zero: ParameterSetLockConfirmation{},
		Put: func(c Command, b []byte) {
			r := c.(ParameterSetLockConfirmation)
			b[0], b[1] = r.ParameterID, uint8(r.Lock)
		},
		Parse: func(b []byte) Command {
			return ParameterSetLockConfirmation{ParameterID: b[0], Lock: Lock(b[1])}
		},
	},
	protocol.Layout[Command]{
		Tag: TagFieldGetReq, Name: "FieldGetReq",
		Size: fieldGetSize, Pad: pad(fieldGetSize), Zero: FieldGetReq{},
		Put:   func(c Command, b []byte) { b[0] = c.(FieldGetReq).FieldID },
		Parse: func(b []byte) Command { return FieldGetReq{FieldID: b[0]} },
	},
	protocol.Layout[Command]{
		Tag: TagFieldGetRes, Name: "FieldGetRes",
		Size: fieldGetResSize, Pad: pad(fieldGetResSize), Zero: FieldGetRes{},
		Put: func(c Command, b []byte) {
			r := c.(FieldGetRes)
			b[0] = r.FieldID
			copy(b[1:], r.Value[:])
		},
		Parse: func(b []byte) Command {
			r := FieldGetRes{FieldID: b[0]}
			copy(r.Value[:], b[1:])
			return r
		},
	},
	protocol.Layout[Command]{
		Tag: TagFieldIDLookupReq, Name: "FieldIDLookupReq",
		Size: lookupReqSize, Pad: pad(lookupReqSize), Zero: FieldIDLookupReq{},
		Put: func(c Command, b []byte) {
			r := c.(FieldIDLookupReq)
			copy(b, r.FieldName[:])
		},
		Parse: func(b []byte) Command {
			var r FieldIDLookupReq
			copy(r.FieldName[:], b)
			return r
		},
	},
	protocol.Layout[Command]{
		Tag: TagFieldIDLookupRes, Name: "FieldIDLookupRes",
		Size: lookupResSize, Pad: pad(lookupResSize), Zero: FieldIDLookupRes{},
		Put: func(c Command, b []byte) {
			r := c.(FieldIDLookupRes)
			b[0], b[1] = r.FieldID, r.FieldType
		},
		Parse: func(b []byte) Command { return FieldIDLookupRes{FieldID: b[0], FieldType: b[1]} },
	},
)

// ToWire encodes c into its 64-byte tagged form, which is also the CAN FD
// payload carrying it.
func ToWire(c Command) []byte { return table.ToWire(c) }

// FromWire decodes a tagged liquid command.
func FromWire(b []byte) (Command, error) { return table.FromWire(b) }

// Name returns the variant name for tag.
func Name(tag uint8) string { return table.Name(tag) }

// Layouts lists every registered variant.
func Layouts() []protocol.Layout[Command] { return table.Layouts() }
