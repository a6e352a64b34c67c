//go:build linux

// Command ecu-master sends a single request to an emulated node and prints
// the reply.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/notnil/ecuemu/canbus"
	"github.com/notnil/ecuemu/config"
	"github.com/notnil/ecuemu/master"
	"github.com/notnil/ecuemu/protocol/generic"
	"github.com/notnil/ecuemu/protocol/liquid"
)

var errUsage = errors.New("unknown command")

func main() {
	fs := pflag.NewFlagSet("ecu-master", pflag.ExitOnError)
	iface := fs.StringP("interface", "i", "can0", "CAN interface")
	node := fs.Uint8P("node-id", "n", 0, "target node id (0-63)")
	proto := fs.StringP("protocol", "p", config.ProtocolGeneric, "node protocol: generic or liquid")
	cmd := fs.StringP("command", "c", "status", "command to send")
	id := fs.Uint8("id", 0, "variable, parameter or field id")
	value := fs.String("value", "0", "value to write (0x, 0b or decimal)")
	name := fs.String("name", "", "field name for field-lookup")
	timeout := fs.Duration("timeout", time.Second, "reply timeout")
	verbose := fs.BoolP("verbose", "v", false, "log bus traffic")
	_ = fs.Parse(os.Args[1:])

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	bus, err := canbus.DialSocketCAN(*iface)
	if err != nil {
		logger.Fatal("Failed to open CAN socket", zap.String("interface", *iface), zap.Error(err))
	}
	if *verbose {
		bus = canbus.NewLoggedBus(bus, logger, zap.InfoLevel, canbus.LogAll)
	}
	defer bus.Close()
	mux := canbus.NewMux(bus)
	defer mux.Close()

	client, err := master.NewClient(mux, *node, *timeout)
	if err != nil {
		logger.Fatal("Failed to create client", zap.Error(err))
	}

	v, err := config.ParseUnsigned(*value)
	if err != nil || !v.IsUint64() || v.Uint64() > 0xFFFFFFFF {
		logger.Fatal("Invalid value", zap.String("value", *value))
	}
	req := request{id: *id, value: uint32(v.Uint64()), name: *name}

	var out string
	switch *proto {
	case config.ProtocolGeneric:
		out, err = runGeneric(client, *cmd, req)
	case config.ProtocolLiquid:
		out, err = runLiquid(client, *cmd, req)
	default:
		err = fmt.Errorf("unknown protocol %q", *proto)
	}
	if err != nil {
		logger.Fatal("Request failed",
			zap.String("command", *cmd),
			zap.Uint8("node_id", *node),
			zap.Error(err))
	}
	fmt.Println(out)
}

type request struct {
	id    uint8
	value uint32
	name  string
}

func runGeneric(c *master.Client, cmd string, r request) (string, error) {
	switch cmd {
	case "get-variable":
		v, err := c.GetVariable(r.id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("variable %d = %d (0x%08x)", r.id, v, v), nil
	case "set-variable":
		if err := c.SetVariable(r.id, r.value); err != nil {
			return "", err
		}
		return fmt.Sprintf("variable %d set to %d", r.id, r.value), nil
	}
	var req generic.Command
	switch cmd {
	case "status":
		req = generic.StatusReq{}
	case "reset":
		req = generic.ResetAllSettingsReq{}
	case "data":
		req = generic.DataReq{}
	case "node-info":
		req = generic.NodeInfoReq{}
	case "flash-clear":
		req = generic.FlashClearReq{}
	default:
		return "", fmt.Errorf("%w: %s", errUsage, cmd)
	}
	res, err := c.Generic(req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %+v", generic.Name(res.Tag()), res), nil
}

func runLiquid(c *master.Client, cmd string, r request) (string, error) {
	switch cmd {
	case "heartbeat":
		n, err := c.Heartbeat(r.value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("heartbeat %d", n), nil
	case "set-parameter":
		st, err := c.SetParameter(r.id, r.value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("parameter %d: %s", r.id, st), nil
	}
	var req liquid.Command
	switch cmd {
	case "node-info", "status":
		req = liquid.NodeInfoReq{}
	case "lock-parameter":
		req = liquid.ParameterSetLockReq{ParameterID: r.id, Lock: liquid.Locked}
	case "unlock-parameter":
		req = liquid.ParameterSetLockReq{ParameterID: r.id, Lock: liquid.Unlocked}
	case "field-get":
		req = liquid.FieldGetReq{FieldID: r.id}
	case "field-lookup":
		req = liquid.NewFieldIDLookupReq(r.name)
	default:
		return "", fmt.Errorf("%w: %s", errUsage, cmd)
	}
	res, err := c.Liquid(req)
	if err != nil {
		return "", err
	}
	switch res := res.(type) {
	case liquid.NodeInfoAnnouncement:
		return fmt.Sprintf("%s: telemetry=%d parameters=%d firmware=0x%08x liquid=0x%08x",
			res.Name(), res.TelCount, res.ParCount, res.FirmwareHash, res.LiquidHash), nil
	case liquid.FieldGetRes:
		return fmt.Sprintf("field %d = %d", res.FieldID, res.U32()), nil
	case liquid.ParameterSetLockConfirmation:
		return fmt.Sprintf("parameter %d: %s", res.ParameterID, res.Lock), nil
	case liquid.FieldIDLookupRes:
		return fmt.Sprintf("field %q: id=%d type=%d", r.name, res.FieldID, res.FieldType), nil
	}
	return liquid.Name(res.Tag()), nil
}
