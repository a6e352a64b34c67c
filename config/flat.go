package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/notnil/ecuemu/state"
)

const keyVariables = "GenericChannel.Variables"

// blob is a declared width for a value in the flat store.
type blob struct {
	max     int  // maximum encoded length in bytes
	numeric bool // value is an integer; oversize is ErrOutOfRange rather than ErrTooLong
}

var declaredWidths = map[string]blob{
	state.KeyReqDataChannelMask:  {4, true},
	state.KeyReqDataData:         {56, false},
	state.KeyNodeInfoFirmware:    {4, true},
	state.KeyNodeInfoChannelMask: {4, true},
	state.KeyNodeInfoChannelType: {32, false},
	state.KeyFlashClearStatus:    {1, true},
}

var flashStatusNames = map[string]uint8{
	"initiated": 0,
	"completed": 1,
	"full":      2,
}

// LoadStoreFile reads a GenericChannel node state file.
func LoadStoreFile(path string) (*state.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	s, err := LoadStore(data)
	if err != nil {
		return nil, fmt.Errorf("state file %s: %w", path, err)
	}
	return s, nil
}

// LoadStore parses a GenericChannel node state document. Nested tables are
// flattened into dotted keys:
//
//	[General]
//	can_id = 3
//
//	[GenericChannel]
//	Variables = [{ id = 1, value = 5 }]
//
//	[GenericChannel.GenericReqData]
//	channel_mask = "0b11111111111"
//	data = "0x1238716874361872"
//
// Integers are stored as 8 little-endian bytes, booleans as one byte and
// 0x/0b/decimal strings as their minimal little-endian encoding. Every
// problem in the document is reported, combined with multierr.
func LoadStore(data []byte) (*state.Store, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}

	flat := make(map[string]any)
	flatten("", doc, flat)

	s := state.NewStore()
	var errs error

	if id, ok := flat[state.KeyCANID]; !ok {
		errs = multierr.Append(errs, keyErr(state.KeyCANID, ErrMissingKey))
	} else if v, err := fitUint(id, 63); err != nil {
		errs = multierr.Append(errs, keyErr(state.KeyCANID, err))
	} else {
		s.Set(state.KeyCANID, []byte{uint8(v)})
	}
	delete(flat, state.KeyCANID)

	if vars, ok := flat[keyVariables]; ok {
		errs = multierr.Append(errs, loadVariables(s, vars))
		delete(flat, keyVariables)
	}

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b, err := encodeValue(k, flat[k])
		if err != nil {
			errs = multierr.Append(errs, keyErr(k, err))
			continue
		}
		s.Set(k, b)
	}

	if errs != nil {
		return nil, errs
	}
	return s, nil
}

func flatten(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

func loadVariables(s *state.Store, v any) error {
	list, ok := v.([]any)
	if !ok {
		return keyErr(keyVariables, fmt.Errorf("%w: expected an array of {id, value} tables", ErrInvalidValue))
	}
	var errs error
	for i, item := range list {
		key := fmt.Sprintf("%s[%d]", keyVariables, i)
		tbl, ok := item.(map[string]any)
		if !ok {
			errs = multierr.Append(errs, keyErr(key, fmt.Errorf("%w: expected a table", ErrInvalidValue)))
			continue
		}
		rawID, ok := tbl["id"]
		if !ok {
			errs = multierr.Append(errs, keyErr(key+".id", ErrMissingKey))
			continue
		}
		rawValue, ok := tbl["value"]
		if !ok {
			errs = multierr.Append(errs, keyErr(key+".value", ErrMissingKey))
			continue
		}
		id, err := fitUint(rawID, 0xFF)
		if err != nil {
			errs = multierr.Append(errs, keyErr(key+".id", err))
			continue
		}
		value, err := fitUint(rawValue, 0xFFFFFFFF)
		if err != nil {
			errs = multierr.Append(errs, keyErr(key+".value", err))
			continue
		}
		s.SetU32(state.VariableKey(uint8(id)), uint32(value))
	}
	return errs
}

func encodeValue(key string, v any) ([]byte, error) {
	if key == state.KeyFlashClearStatus {
		if name, ok := v.(string); ok {
			if st, ok := flashStatusNames[strings.ToLower(name)]; ok {
				return []byte{st}, nil
			}
		}
	}

	var b []byte
	switch x := v.(type) {
	case bool:
		if x {
			b = []byte{1}
		} else {
			b = []byte{0}
		}
	case int64:
		if w, ok := declaredWidths[key]; ok {
			if x < 0 || (w.max < 8 && uint64(x) >= 1<<(8*w.max)) {
				return nil, fmt.Errorf("%w: %d does not fit %d bytes", ErrOutOfRange, x, w.max)
			}
		}
		b = make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(x))
		return b, nil
	case string:
		n, err := ParseUnsigned(x)
		if err != nil {
			return nil, err
		}
		b = leBytes(n)
	default:
		return nil, fmt.Errorf("%w: unsupported %T", ErrInvalidValue, v)
	}

	if w, ok := declaredWidths[key]; ok && len(b) > w.max {
		if w.numeric {
			return nil, fmt.Errorf("%w: %d bytes exceed %d", ErrOutOfRange, len(b), w.max)
		}
		return nil, fmt.Errorf("%w: %d bytes exceed %d", ErrTooLong, len(b), w.max)
	}
	return b, nil
}
