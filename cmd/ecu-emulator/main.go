//go:build linux

// Command ecu-emulator emulates one node on a CAN FD bus.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notnil/ecuemu/canbus"
	"github.com/notnil/ecuemu/config"
	"github.com/notnil/ecuemu/dispatch"
	"github.com/notnil/ecuemu/state"
)

func main() {
	fs := pflag.NewFlagSet("ecu-emulator", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])
	path, _ := fs.GetString("config")

	settings, err := config.Load(path, fs)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	logger, err := newLogger(settings)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	node, responder, err := loadNode(settings, logger)
	if err != nil {
		logger.Fatal("Failed to load node state", zap.String("file", settings.Node.StateFile), zap.Error(err))
	}
	logger.Info("Node state loaded",
		zap.String("protocol", settings.Node.Protocol),
		zap.Uint8("node_id", node))

	if settings.CAN.BringUp {
		if err := bringUp(settings.CAN); err != nil {
			logger.Fatal("Failed to bring up interface", zap.String("interface", settings.CAN.Interface), zap.Error(err))
		}
	}

	bus, err := canbus.DialSocketCAN(settings.CAN.Interface)
	if err != nil {
		logger.Fatal("Failed to open CAN socket", zap.String("interface", settings.CAN.Interface), zap.Error(err))
	}
	if settings.CAN.LogFrames {
		bus = canbus.NewLoggedBus(bus, logger, zapcore.InfoLevel, canbus.LogAll)
	}

	engine, err := dispatch.NewEngine(node, responder, logger)
	if err != nil {
		logger.Fatal("Failed to create engine", zap.Error(err))
	}
	srv := dispatch.NewServer(bus, engine, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		bus.Close()
	}()

	logger.Info("ECU emulator started", zap.String("interface", settings.CAN.Interface))
	if err := srv.Serve(); err != nil {
		logger.Error("Serve failed", zap.Error(err))
	}
	st := srv.Stats()
	logger.Info("ECU emulator stopped",
		zap.Uint64("received", st.Received),
		zap.Uint64("replied", st.Replied),
		zap.Uint64("dropped", st.Dropped))
}

func newLogger(s *config.Settings) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if s.Log.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(s.ZapLevel())
	return cfg.Build()
}

// loadNode reads the state file for the configured protocol and returns the
// node id to answer for along with its responder. A node id given in the
// settings overrides the one in the state file.
func loadNode(s *config.Settings, logger *zap.Logger) (uint8, dispatch.Responder, error) {
	switch s.Node.Protocol {
	case config.ProtocolLiquid:
		n, err := config.LoadNodeFile(s.Node.StateFile)
		if err != nil {
			return 0, nil, err
		}
		if s.Node.ID != config.NodeIDFromState {
			n.ID = uint8(s.Node.ID)
		}
		return n.ID, dispatch.NewLiquidNode(n, logger), nil
	default:
		store, err := config.LoadStoreFile(s.Node.StateFile)
		if err != nil {
			return 0, nil, err
		}
		id := store.U8OrZero(state.KeyCANID)
		if s.Node.ID != config.NodeIDFromState {
			id = uint8(s.Node.ID)
		}
		r, err := dispatch.NewGenericResponder(store, logger)
		if err != nil {
			return 0, nil, err
		}
		return id, r, nil
	}
}

func bringUp(c config.CANSettings) error {
	opts := canbus.LinuxCANInterfaceOptions{Bitrate: c.Bitrate, DataBitrate: c.DataBitrate}
	if !opts.Empty() {
		if err := canbus.ConfigureLinuxCANInterface(c.Interface, opts); err != nil {
			return canbus.RequireRootOrCapNetAdmin(err)
		}
	}
	up, err := canbus.IsInterfaceUp(c.Interface)
	if err != nil {
		return err
	}
	if up {
		return nil
	}
	return canbus.RequireRootOrCapNetAdmin(canbus.SetInterfaceUp(c.Interface))
}
