package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/notnil/ecuemu/protocol/liquid"
	"github.com/notnil/ecuemu/state"
)

type nodeDoc struct {
	NodeID       any                 `toml:"node_id"`
	Frequency    any                 `toml:"frequency"`
	FirmwareHash any                 `toml:"firmware_hash"`
	LiquidHash   any                 `toml:"liquid_hash"`
	DeviceName   string              `toml:"device_name"`
	Telemetry    map[string]fieldDoc `toml:"telemetry_values"`
	Parameters   map[string]fieldDoc `toml:"parameters"`
}

type fieldDoc struct {
	DataType string `toml:"datatype"`
	Value    any    `toml:"value"`
	Locked   bool   `toml:"locked"`
}

// LoadNodeFile reads a liquid node state file.
func LoadNodeFile(path string) (*state.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	n, err := LoadNode(data)
	if err != nil {
		return nil, fmt.Errorf("state file %s: %w", path, err)
	}
	return n, nil
}

// LoadNode parses a liquid node state document:
//
//	node_id = 3
//	frequency = 100
//	firmware_hash = "0xCAFEBABE"
//	liquid_hash = 0
//	device_name = "pump-controller"
//
//	[telemetry_values.temperature]
//	datatype = "Float32"
//	value = 21.5
//
//	[parameters.1]
//	datatype = "UInt16"
//	value = 500
//	locked = false
//
// Values are range-checked against their datatype and stored as the 32-bit
// pattern sent on the wire. Unknown keys are rejected.
func LoadNode(data []byte) (*state.Node, error) {
	var doc nodeDoc
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for i := range strict.Errors {
				keys = append(keys, strings.Join(strict.Errors[i].Key(), "."))
			}
			return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidValue, strings.Join(keys, ", "))
		}
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}

	var errs error
	u32 := func(key string, v any, max uint64) uint64 {
		if v == nil {
			return 0
		}
		n, err := fitUint(v, max)
		if err != nil {
			errs = multierr.Append(errs, keyErr(key, err))
		}
		return n
	}

	if doc.NodeID == nil {
		errs = multierr.Append(errs, keyErr("node_id", ErrMissingKey))
	}
	id := u32("node_id", doc.NodeID, 63)
	n := state.NewNode(uint8(id))
	n.Frequency = uint32(u32("frequency", doc.Frequency, math.MaxUint32))
	n.FirmwareHash = uint32(u32("firmware_hash", doc.FirmwareHash, math.MaxUint32))
	n.LiquidHash = uint32(u32("liquid_hash", doc.LiquidHash, math.MaxUint32))
	if len(doc.DeviceName) > liquid.DeviceNameSize {
		errs = multierr.Append(errs, keyErr("device_name",
			fmt.Errorf("%w: %d bytes (max %d)", ErrTooLong, len(doc.DeviceName), liquid.DeviceNameSize)))
	}
	n.DeviceName = doc.DeviceName

	for _, name := range sortedNames(doc.Telemetry) {
		key := "telemetry_values." + name
		f := doc.Telemetry[name]
		typ, v, err := fieldValue(key, f)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if f.Locked {
			errs = multierr.Append(errs, keyErr(key+".locked", fmt.Errorf("%w: telemetry values cannot be locked", ErrInvalidValue)))
		}
		if err := n.AddTelemetry(name, typ, v); err != nil {
			errs = multierr.Append(errs, keyErr(key, err))
		}
	}
	for _, name := range sortedNames(doc.Parameters) {
		key := "parameters." + name
		f := doc.Parameters[name]
		typ, v, err := fieldValue(key, f)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := n.AddParameter(name, typ, v, f.Locked); err != nil {
			errs = multierr.Append(errs, keyErr(key, err))
		}
	}

	if errs != nil {
		return nil, errs
	}
	return n, nil
}

func sortedNames(m map[string]fieldDoc) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func fieldValue(key string, f fieldDoc) (state.DataType, uint32, error) {
	if f.DataType == "" {
		return 0, 0, keyErr(key+".datatype", ErrMissingKey)
	}
	typ, err := state.ParseDataType(f.DataType)
	if err != nil {
		return 0, 0, keyErr(key+".datatype", fmt.Errorf("%w: %v", ErrInvalidValue, err))
	}
	if f.Value == nil {
		return 0, 0, keyErr(key+".value", ErrMissingKey)
	}
	v, err := Normalize(typ, f.Value)
	if err != nil {
		return 0, 0, keyErr(key+".value", err)
	}
	return typ, v, nil
}

// Normalize converts a decoded TOML value to the 32-bit pattern of a field
// of type typ:
//   - booleans become 0 or 1
//   - Float32 accepts floats and integers and stores their IEEE 754 bits
//   - integer types accept integers within their range, stored as 32-bit
//     two's complement
//   - 0x/0b/decimal strings are raw bit patterns and must fit the type's width
func Normalize(typ state.DataType, v any) (uint32, error) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	if s, ok := v.(string); ok {
		n, err := fitUint(s, widthMax(typ))
		return uint32(n), err
	}

	if typ == state.Float32 {
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case int64:
			f = float64(x)
		default:
			return 0, fmt.Errorf("%w: expected a number, got %T", ErrInvalidValue, v)
		}
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return 0, fmt.Errorf("%w: %g exceeds float32", ErrOutOfRange, f)
		}
		return math.Float32bits(float32(f)), nil
	}

	x, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %s expects an integer, got %T", ErrInvalidValue, typ, v)
	}
	lo, hi, _ := typ.Range()
	if x < lo || x > hi {
		return 0, fmt.Errorf("%w: %d outside %s range %d..%d", ErrOutOfRange, x, typ, lo, hi)
	}
	return uint32(x), nil
}

func widthMax(typ state.DataType) uint64 {
	switch typ {
	case state.Int8, state.UInt8:
		return math.MaxUint8
	case state.Int16, state.UInt16:
		return math.MaxUint16
	case state.Boolean:
		return 1
	}
	return math.MaxUint32
}
