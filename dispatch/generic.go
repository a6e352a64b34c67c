package dispatch

import (
	"go.uber.org/zap"

	"github.com/notnil/ecuemu/protocol"
	"github.com/notnil/ecuemu/protocol/generic"
	"github.com/notnil/ecuemu/state"
)

type genericHandler func(g *GenericChannel, cmd generic.Command) generic.Command

// genericHandlers maps request tags to their handlers. Requests missing
// here are accepted but not answered.
var genericHandlers = map[uint8]genericHandler{
	generic.TagResetAllSettingsReq: func(*GenericChannel, generic.Command) generic.Command {
		return generic.ResetAllSettingsRes{}
	},
	generic.TagStatusReq: func(*GenericChannel, generic.Command) generic.Command {
		return generic.StatusRes{}
	},
	generic.TagSetVariableReq: func(g *GenericChannel, cmd generic.Command) generic.Command {
		req := cmd.(generic.SetVariableReq)
		g.store.SetU32(state.VariableKey(req.VariableID), req.Value)
		return generic.SetVariableRes{SetMsg: req.SetMsg}
	},
	generic.TagGetVariableReq: func(g *GenericChannel, cmd generic.Command) generic.Command {
		id := cmd.(generic.GetVariableReq).VariableID
		return generic.GetVariableRes{SetMsg: protocol.SetMsg{
			VariableID: id,
			Value:      g.store.U32OrZero(state.VariableKey(id)),
		}}
	},
	generic.TagSyncClockReq: func(*GenericChannel, generic.Command) generic.Command {
		return generic.SyncClockRes{}
	},
	generic.TagDataReq: func(g *GenericChannel, _ generic.Command) generic.Command {
		var res generic.DataRes
		res.ChannelMask = g.store.U32OrZero(state.KeyReqDataChannelMask)
		copy(res.Data[:], g.store.BytesOrZeros(state.KeyReqDataData, len(res.Data)))
		return res
	},
	generic.TagNodeInfoReq: func(g *GenericChannel, _ generic.Command) generic.Command {
		var res generic.NodeInfoRes
		res.FirmwareVersion = g.store.U32OrZero(state.KeyNodeInfoFirmware)
		res.ChannelMask = g.store.U32OrZero(state.KeyNodeInfoChannelMask)
		copy(res.ChannelType[:], g.store.BytesOrZeros(state.KeyNodeInfoChannelType, len(res.ChannelType)))
		return res
	},
	generic.TagFlashClearReq: func(g *GenericChannel, _ generic.Command) generic.Command {
		return generic.FlashStatusRes{Status: generic.FlashStatus(g.store.U8OrZero(state.KeyFlashClearStatus))}
	},
}

// GenericChannel serves GenericChannel commands from a flat state store.
type GenericChannel struct {
	store  *state.Store
	logger *zap.Logger
}

// NewGenericChannel returns a channel backed by store. A nil logger
// disables logging.
func NewGenericChannel(store *state.Store, logger *zap.Logger) *GenericChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenericChannel{store: store, logger: logger.Named("generic")}
}

// NewGenericResponder returns an envelope responder with a GenericChannel
// registered at generic.ChannelID.
func NewGenericResponder(store *state.Store, logger *zap.Logger) (*EnvelopeResponder, error) {
	r := NewEnvelopeResponder()
	if err := r.Register(generic.ChannelID, NewGenericChannel(store, logger)); err != nil {
		return nil, err
	}
	return r, nil
}

// Handle implements Channel.
func (g *GenericChannel) Handle(id protocol.MessageID, wire []byte) ([]byte, error) {
	cmd, err := generic.FromWire(wire)
	if err != nil {
		return nil, err
	}
	reply := g.Dispatch(cmd)
	if reply == nil {
		return nil, nil
	}
	g.logger.Debug("reply",
		zap.String("request", generic.Name(cmd.Tag())),
		zap.String("response", generic.Name(reply.Tag())),
		zap.Stringer("id", id))
	return generic.ToWire(reply), nil
}

// Dispatch runs cmd against the store and returns the reply, or nil when
// the command takes none.
func (g *GenericChannel) Dispatch(cmd generic.Command) generic.Command {
	if generic.IsResponse(cmd) {
		g.logger.Warn("unexpected response received", zap.String("command", generic.Name(cmd.Tag())))
		return nil
	}
	h, ok := genericHandlers[cmd.Tag()]
	if !ok {
		g.logger.Info("unhandled command", zap.String("command", generic.Name(cmd.Tag())))
		return nil
	}
	return h(g, cmd)
}
