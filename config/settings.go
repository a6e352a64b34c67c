// Package config loads emulator settings (viper + pflag) and node state
// files (TOML) for both node profiles.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

// Node profiles.
const (
	ProtocolGeneric = "generic"
	ProtocolLiquid  = "liquid"
)

// EnvPrefix prefixes environment overrides, e.g. ECU_CAN_INTERFACE.
const EnvPrefix = "ECU"

// NodeIDFromState tells the emulator to take its node id from the state file.
const NodeIDFromState = -1

type Settings struct {
	CAN  CANSettings  `mapstructure:"can"`
	Node NodeSettings `mapstructure:"node"`
	Log  LogSettings  `mapstructure:"log"`
}

type CANSettings struct {
	Interface   string `mapstructure:"interface"`
	LogFrames   bool   `mapstructure:"log_frames"`
	BringUp     bool   `mapstructure:"bring_up"`
	Bitrate     uint32 `mapstructure:"bitrate"`
	DataBitrate uint32 `mapstructure:"data_bitrate"`
}

type NodeSettings struct {
	ID        int    `mapstructure:"id"`
	Protocol  string `mapstructure:"protocol"`
	StateFile string `mapstructure:"state_file"`
}

type LogSettings struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// flagKeys maps command line flags to settings keys.
var flagKeys = map[string]string{
	"interface":       "can.interface",
	"log-frames":      "can.log_frames",
	"bring-up":        "can.bring_up",
	"bitrate":         "can.bitrate",
	"dbitrate":        "can.data_bitrate",
	"node-id":         "node.id",
	"protocol":        "node.protocol",
	"state":           "node.state_file",
	"log-level":       "log.level",
	"log-development": "log.development",
}

// RegisterFlags declares the emulator's command line flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "settings file (toml, yaml or json)")
	fs.String("state", "", "node state file (toml)")
	fs.String("interface", "vcan0", "CAN interface name")
	fs.String("protocol", ProtocolGeneric, "node protocol: generic or liquid")
	fs.Int("node-id", NodeIDFromState, "node id override (0-63); -1 uses the state file")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Bool("log-development", false, "human friendly development logging")
	fs.Bool("log-frames", false, "log every frame sent and received")
	fs.Bool("bring-up", false, "configure and bring the interface up (needs CAP_NET_ADMIN)")
	fs.Uint32("bitrate", 0, "nominal bitrate used with --bring-up")
	fs.Uint32("dbitrate", 0, "CAN FD data bitrate used with --bring-up")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("can.interface", "vcan0")
	v.SetDefault("can.log_frames", false)
	v.SetDefault("can.bring_up", false)
	v.SetDefault("can.bitrate", 0)
	v.SetDefault("can.data_bitrate", 0)
	v.SetDefault("node.id", NodeIDFromState)
	v.SetDefault("node.protocol", ProtocolGeneric)
	v.SetDefault("node.state_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load resolves settings from defaults, the optional settings file at path,
// ECU_* environment variables and the flags in fs (which may be nil), in
// increasing order of precedence.
func Load(path string, fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var err error
	if s.CAN.Interface == "" {
		err = multierr.Append(err, keyErr("can.interface", ErrMissingKey))
	}
	if s.CAN.DataBitrate != 0 && s.CAN.Bitrate == 0 {
		err = multierr.Append(err, keyErr("can.bitrate", fmt.Errorf("%w: data bitrate set without nominal bitrate", ErrInvalidValue)))
	}
	switch s.Node.Protocol {
	case ProtocolGeneric, ProtocolLiquid:
	default:
		err = multierr.Append(err, keyErr("node.protocol", fmt.Errorf("%w: %q", ErrInvalidValue, s.Node.Protocol)))
	}
	if s.Node.ID < NodeIDFromState || s.Node.ID > 63 {
		err = multierr.Append(err, keyErr("node.id", fmt.Errorf("%w: %d (valid 0..63 or -1)", ErrOutOfRange, s.Node.ID)))
	}
	if s.Node.StateFile == "" {
		err = multierr.Append(err, keyErr("node.state_file", ErrMissingKey))
	}
	if _, lerr := zapcore.ParseLevel(s.Log.Level); lerr != nil {
		err = multierr.Append(err, keyErr("log.level", fmt.Errorf("%w: %v", ErrInvalidValue, lerr)))
	}
	return err
}

// ZapLevel returns the configured log level, falling back to info.
func (s *Settings) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(s.Log.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
