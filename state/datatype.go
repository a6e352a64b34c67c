package state

import (
	"fmt"
	"strings"
)

// DataType is the declared type of a telemetry value or parameter. Its
// numeric value is the field type reported on the wire.
type DataType uint8

const (
	Float32 DataType = iota
	Int32
	Int16
	Int8
	UInt32
	UInt16
	UInt8
	Boolean
)

var dataTypeNames = [...]string{
	Float32: "float32",
	Int32:   "int32",
	Int16:   "int16",
	Int8:    "int8",
	UInt32:  "uint32",
	UInt16:  "uint16",
	UInt8:   "uint8",
	Boolean: "boolean",
}

func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return fmt.Sprintf("DataType(%d)", uint8(d))
}

// Valid reports whether d is a known data type.
func (d DataType) Valid() bool { return int(d) < len(dataTypeNames) }

// ParseDataType accepts the lower- or mixed-case type names used in state
// files, e.g. "Float32", "uint8" or "bool".
func ParseDataType(s string) (DataType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "bool" {
		return Boolean, nil
	}
	for i, n := range dataTypeNames {
		if n == name {
			return DataType(i), nil
		}
	}
	return 0, fmt.Errorf("state: unknown data type %q", s)
}

// Range returns the inclusive integer range a value of type d may take.
// Float32 reports ok=false since its values are not range-checked as
// integers.
func (d DataType) Range() (lo, hi int64, ok bool) {
	switch d {
	case Int32:
		return -1 << 31, 1<<31 - 1, true
	case Int16:
		return -1 << 15, 1<<15 - 1, true
	case Int8:
		return -1 << 7, 1<<7 - 1, true
	case UInt32:
		return 0, 1<<32 - 1, true
	case UInt16:
		return 0, 1<<16 - 1, true
	case UInt8:
		return 0, 1<<8 - 1, true
	case Boolean:
		return 0, 1, true
	}
	return 0, 0, false
}
