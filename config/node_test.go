package config

import (
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/multierr"

	"github.com/notnil/ecuemu/state"
)

const liquidState = `
node_id = 3
frequency = 100
firmware_hash = "0xCAFEBABE"
liquid_hash = 305419896
device_name = "pump-controller"

[telemetry_values.temperature]
datatype = "Float32"
value = 21.5

[telemetry_values.running]
datatype = "Boolean"
value = true

[parameters.1]
datatype = "UInt16"
value = 500

[parameters.2]
datatype = "Int8"
value = -1
locked = true
`

func TestLoadNode(t *testing.T) {
	n, err := LoadNode([]byte(liquidState))
	if err != nil {
		t.Fatalf("LoadNode: %v", err)
	}
	if n.ID != 3 || n.Frequency != 100 || n.FirmwareHash != 0xCAFEBABE || n.LiquidHash != 0x12345678 {
		t.Fatalf("header = %+v", n)
	}
	if n.DeviceName != "pump-controller" {
		t.Fatalf("device name = %q", n.DeviceName)
	}
	if n.TelemetryCount() != 2 || n.ParameterCount() != 2 {
		t.Fatalf("counts = %d/%d", n.TelemetryCount(), n.ParameterCount())
	}
	temp, _ := n.Telemetry("temperature")
	if temp.Type != state.Float32 || temp.Value != math.Float32bits(21.5) {
		t.Fatalf("temperature = %+v", temp)
	}
	if run, _ := n.Telemetry("running"); run.Value != 1 {
		t.Fatalf("running = %+v", run)
	}
	p1, _ := n.Parameter("1")
	if p1.Value != 500 || p1.Locked || p1.Type != state.UInt16 {
		t.Fatalf("parameter 1 = %+v", p1)
	}
	p2, _ := n.Parameter("2")
	if p2.Value != 0xFFFFFFFF || !p2.Locked {
		t.Fatalf("parameter 2 = %+v", p2)
	}
}

func TestLoadNode_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		key  string
		want error
	}{
		{"missing node id", `device_name = "x"`, "node_id", ErrMissingKey},
		{"node id range", `node_id = 64`, "node_id", ErrOutOfRange},
		{"hash range", "node_id = 1\nfirmware_hash = \"0x1FFFFFFFF\"", "firmware_hash", ErrOutOfRange},
		{"device name length", "node_id = 1\ndevice_name = \"" + strings.Repeat("a", 54) + "\"", "device_name", ErrTooLong},
		{"missing datatype", "node_id = 1\n[parameters.1]\nvalue = 1", "parameters.1.datatype", ErrMissingKey},
		{"unknown datatype", "node_id = 1\n[parameters.1]\ndatatype = \"double\"\nvalue = 1", "parameters.1.datatype", ErrInvalidValue},
		{"missing value", "node_id = 1\n[parameters.1]\ndatatype = \"UInt8\"", "parameters.1.value", ErrMissingKey},
		{"uint8 range", "node_id = 1\n[parameters.1]\ndatatype = \"UInt8\"\nvalue = 256", "parameters.1.value", ErrOutOfRange},
		{"int16 range", "node_id = 1\n[telemetry_values.t]\ndatatype = \"Int16\"\nvalue = -32769", "telemetry_values.t.value", ErrOutOfRange},
		{"float for int", "node_id = 1\n[telemetry_values.t]\ndatatype = \"Int32\"\nvalue = 1.5", "telemetry_values.t.value", ErrInvalidValue},
		{"locked telemetry", "node_id = 1\n[telemetry_values.t]\ndatatype = \"UInt8\"\nvalue = 1\nlocked = true", "telemetry_values.t.locked", ErrInvalidValue},
		{"duplicate name", "node_id = 1\n[telemetry_values.x]\ndatatype = \"UInt8\"\nvalue = 1\n[parameters.x]\ndatatype = \"UInt8\"\nvalue = 1", "parameters.x", state.ErrDuplicateName},
	}
	for _, tc := range cases {
		_, err := LoadNode([]byte(tc.doc))
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
		var cerr *Error
		if !errors.As(err, &cerr) || cerr.Key != tc.key {
			t.Fatalf("%s: error %v not attributed to %s", tc.name, err, tc.key)
		}
	}
}

func TestLoadNode_UnknownKeys(t *testing.T) {
	_, err := LoadNode([]byte("node_id = 1\nnode_name = \"typo\"\n"))
	if !errors.Is(err, ErrInvalidValue) || !strings.Contains(err.Error(), "node_name") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadNode_ReportsEveryProblem(t *testing.T) {
	doc := "node_id = 70\ndevice_name = \"" + strings.Repeat("b", 60) + "\"\n[parameters.1]\ndatatype = \"UInt8\"\nvalue = 999\n"
	_, err := LoadNode([]byte(doc))
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("got %d errors, want 3: %v", got, err)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		typ  state.DataType
		in   any
		want uint32
	}{
		{state.Boolean, true, 1},
		{state.Boolean, false, 0},
		{state.Boolean, int64(1), 1},
		{state.UInt8, true, 1},
		{state.Float32, 1.0, 0x3F800000},
		{state.Float32, int64(2), 0x40000000},
		{state.Float32, "0x3F800000", 0x3F800000},
		{state.Int32, int64(-2), 0xFFFFFFFE},
		{state.UInt32, int64(math.MaxUint32), math.MaxUint32},
		{state.UInt16, "0xFFFF", 0xFFFF},
		{state.Int8, "0x80", 0x80},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.typ, tc.in)
		if err != nil {
			t.Fatalf("Normalize(%s, %v): %v", tc.typ, tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%s, %v) = 0x%X want 0x%X", tc.typ, tc.in, got, tc.want)
		}
	}
	if _, err := Normalize(state.UInt8, "0x100"); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("string width: %v", err)
	}
	if _, err := Normalize(state.Boolean, int64(2)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("boolean range: %v", err)
	}
	if _, err := Normalize(state.Float32, 1e39); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("float32 overflow: %v", err)
	}
}
