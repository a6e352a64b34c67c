package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoad_DefaultsAndFlags(t *testing.T) {
	s, err := Load("", newFlags(t, "--state", "node.toml", "--node-id", "7", "--protocol", "liquid", "--log-frames"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.CAN.Interface != "vcan0" {
		t.Fatalf("interface = %q", s.CAN.Interface)
	}
	if s.Node.ID != 7 || s.Node.Protocol != ProtocolLiquid || s.Node.StateFile != "node.toml" {
		t.Fatalf("node = %+v", s.Node)
	}
	if !s.CAN.LogFrames || s.CAN.BringUp {
		t.Fatalf("can = %+v", s.CAN)
	}
	if s.ZapLevel() != zapcore.InfoLevel {
		t.Fatalf("level = %v", s.ZapLevel())
	}
}

func TestLoad_FileEnvAndFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	doc := `
[can]
interface = "can1"
bitrate = 500000
data_bitrate = 2000000

[node]
protocol = "generic"
state_file = "from-file.toml"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ECU_CAN_INTERFACE", "vcan9")

	s, err := Load(path, newFlags(t, "--state", "from-flag.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.CAN.Interface != "vcan9" {
		t.Fatalf("env should override file, interface = %q", s.CAN.Interface)
	}
	if s.Node.StateFile != "from-flag.toml" {
		t.Fatalf("flag should override file, state_file = %q", s.Node.StateFile)
	}
	if s.CAN.Bitrate != 500000 || s.CAN.DataBitrate != 2000000 {
		t.Fatalf("bitrates = %d/%d", s.CAN.Bitrate, s.CAN.DataBitrate)
	}
	if s.ZapLevel() != zapcore.DebugLevel {
		t.Fatalf("level = %v", s.ZapLevel())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml"), nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSettings_Validate(t *testing.T) {
	s := Settings{
		CAN:  CANSettings{Interface: "", DataBitrate: 1},
		Node: NodeSettings{ID: 64, Protocol: "canopen"},
		Log:  LogSettings{Level: "loud"},
	}
	err := s.Validate()
	for _, want := range []error{ErrMissingKey, ErrOutOfRange, ErrInvalidValue} {
		if !errors.Is(err, want) {
			t.Fatalf("Validate() = %v, missing %v", err, want)
		}
	}
	errs := multierr.Errors(err)
	for _, k := range []string{"can.interface", "can.bitrate", "node.protocol", "node.id", "node.state_file", "log.level"} {
		found := false
		for _, e := range errs {
			var cerr *Error
			if errors.As(e, &cerr) && cerr.Key == k {
				found = true
			}
		}
		if !found {
			t.Fatalf("Validate() did not report %s: %v", k, err)
		}
	}
}
