package config

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnsigned parses a non-negative integer of arbitrary width written as
// "0x..." (hex), "0b..." (binary) or plain decimal. Underscores are ignored.
func ParseUnsigned(s string) (*big.Int, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if strings.HasPrefix(digits, "-") {
		return nil, fmt.Errorf("%w: negative value %q", ErrInvalidValue, s)
	}
	base := 10
	switch {
	case strings.HasPrefix(digits, "0x"), strings.HasPrefix(digits, "0X"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0b"), strings.HasPrefix(digits, "0B"):
		base, digits = 2, digits[2:]
	}
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return nil, fmt.Errorf("%w: %q is not a base %d number", ErrInvalidValue, s, base)
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base %d number", ErrInvalidValue, s, base)
	}
	return n, nil
}

// unsigned converts a decoded TOML value (integer or prefixed string) to a
// non-negative big integer.
func unsigned(v any) (*big.Int, error) {
	switch x := v.(type) {
	case int64:
		if x < 0 {
			return nil, fmt.Errorf("%w: negative value %d", ErrInvalidValue, x)
		}
		return big.NewInt(x), nil
	case string:
		return ParseUnsigned(x)
	default:
		return nil, fmt.Errorf("%w: expected an unsigned integer or prefixed string, got %T", ErrInvalidValue, v)
	}
}

// fitUint converts v to a uint64 no larger than max.
func fitUint(v any, max uint64) (uint64, error) {
	n, err := unsigned(v)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() || n.Uint64() > max {
		return 0, fmt.Errorf("%w: %s exceeds %d", ErrOutOfRange, n, max)
	}
	return n.Uint64(), nil
}

// leBytes returns the minimal little-endian encoding of n; zero encodes as
// a single zero byte.
func leBytes(n *big.Int) []byte {
	be := n.Bytes()
	if len(be) == 0 {
		return []byte{0}
	}
	out := make([]byte, len(be))
	for i, b := range be {
		out[len(be)-1-i] = b
	}
	return out
}
