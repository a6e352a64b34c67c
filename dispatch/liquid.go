package dispatch

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/notnil/ecuemu/protocol"
	"github.com/notnil/ecuemu/protocol/liquid"
	"github.com/notnil/ecuemu/state"
)

type liquidHandler func(l *LiquidNode, cmd liquid.Command) liquid.Command

var liquidHandlers = map[uint8]liquidHandler{
	liquid.TagNodeInfoReq:         (*LiquidNode).nodeInfo,
	liquid.TagHeartbeatReq:        (*LiquidNode).heartbeat,
	liquid.TagParameterSetReq:     (*LiquidNode).parameterSet,
	liquid.TagParameterSetLockReq: (*LiquidNode).parameterLock,
	liquid.TagFieldGetReq:         (*LiquidNode).fieldGet,
	liquid.TagFieldIDLookupReq:    (*LiquidNode).fieldLookup,
}

// LiquidNode serves the liquid node protocol from a typed node record.
// Commands fill the whole frame payload, so it is a Responder on its own.
type LiquidNode struct {
	node   *state.Node
	logger *zap.Logger
}

// NewLiquidNode returns a responder backed by node. A nil logger disables
// logging.
func NewLiquidNode(node *state.Node, logger *zap.Logger) *LiquidNode {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiquidNode{node: node, logger: logger.Named("liquid")}
}

// Respond implements Responder.
func (l *LiquidNode) Respond(id protocol.MessageID, payload []byte) ([]byte, bool, error) {
	cmd, err := liquid.FromWire(payload)
	if err != nil {
		return nil, false, err
	}
	reply := l.Dispatch(cmd)
	if reply == nil {
		return nil, false, nil
	}
	l.logger.Debug("reply",
		zap.String("request", liquid.Name(cmd.Tag())),
		zap.String("response", liquid.Name(reply.Tag())),
		zap.Stringer("id", id))
	return liquid.ToWire(reply), true, nil
}

// Dispatch runs cmd against the node and returns the reply, or nil when the
// command takes none.
func (l *LiquidNode) Dispatch(cmd liquid.Command) liquid.Command {
	if liquid.IsResponse(cmd) {
		l.logger.Warn("unexpected response received", zap.String("command", liquid.Name(cmd.Tag())))
		return nil
	}
	h, ok := liquidHandlers[cmd.Tag()]
	if !ok {
		l.logger.Info("unhandled command", zap.String("command", liquid.Name(cmd.Tag())))
		return nil
	}
	return h(l, cmd)
}

func (l *LiquidNode) nodeInfo(liquid.Command) liquid.Command {
	n := l.node
	res := liquid.NodeInfoAnnouncement{
		TelCount:     uint8(n.TelemetryCount()),
		ParCount:     uint8(n.ParameterCount()),
		FirmwareHash: n.FirmwareHash,
		LiquidHash:   n.LiquidHash,
	}
	copy(res.DeviceName[:], n.DeviceName)
	return res
}

func (l *LiquidNode) heartbeat(cmd liquid.Command) liquid.Command {
	return liquid.HeartbeatRes{Counter: cmd.(liquid.HeartbeatReq).Counter + 1}
}

// Parameters are addressed by name: id N is the parameter named "N".
func parameterName(id uint8) string { return strconv.Itoa(int(id)) }

func (l *LiquidNode) parameterSet(cmd liquid.Command) liquid.Command {
	req := cmd.(liquid.ParameterSetReq)
	name := parameterName(req.ParameterID)
	res := liquid.ParameterSetConfirmation{ParameterID: req.ParameterID}

	p, ok := l.node.Parameter(name)
	switch {
	case !ok:
		res.Status = liquid.StatusInvalidParameterID
	case p.Locked:
		res.Status = liquid.StatusParameterLocked
	default:
		l.node.SetParameterValue(name, protocol.U32(req.Value[:4]))
		res.Status = liquid.StatusSuccess
		res.Value = req.Value
	}
	if res.Status != liquid.StatusSuccess {
		l.logger.Info("parameter set rejected",
			zap.Uint8("parameter_id", req.ParameterID), zap.Stringer("status", res.Status))
	}
	return res
}

func (l *LiquidNode) parameterLock(cmd liquid.Command) liquid.Command {
	req := cmd.(liquid.ParameterSetLockReq)
	name := parameterName(req.ParameterID)
	p, ok := l.node.Parameter(name)
	if !ok {
		return liquid.ParameterSetConfirmation{
			ParameterID: req.ParameterID,
			Status:      liquid.StatusInvalidParameterID,
		}
	}
	switch req.Lock {
	case liquid.Locked, liquid.Unlocked:
		l.node.SetParameterLock(name, req.Lock == liquid.Locked)
		p.Locked = req.Lock == liquid.Locked
	default:
		l.logger.Info("invalid lock state",
			zap.Uint8("parameter_id", req.ParameterID), zap.Stringer("lock", req.Lock))
	}
	// The confirmation always carries the state now in effect.
	res := liquid.ParameterSetLockConfirmation{ParameterID: req.ParameterID, Lock: liquid.Unlocked}
	if p.Locked {
		res.Lock = liquid.Locked
	}
	return res
}

func (l *LiquidNode) fieldGet(cmd liquid.Command) liquid.Command {
	id := cmd.(liquid.FieldGetReq).FieldID
	res := liquid.FieldGetRes{FieldID: id}
	if f, ok := l.node.Field(id); ok {
		protocol.PutU32(res.Value[:4], l.node.FieldValue(f))
	}
	return res
}

func (l *LiquidNode) fieldLookup(cmd liquid.Command) liquid.Command {
	name := cmd.(liquid.FieldIDLookupReq).Name()
	f, ok := l.node.FieldByName(name)
	if !ok {
		return liquid.FieldIDLookupRes{FieldID: liquid.UnknownField, FieldType: liquid.UnknownField}
	}
	return liquid.FieldIDLookupRes{FieldID: f.ID, FieldType: uint8(f.Type)}
}
