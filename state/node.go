package state

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateName reports a telemetry value or parameter name already in use.
	ErrDuplicateName = errors.New("state: duplicate field name")
	// ErrTooManyFields reports a node with more fields than a one-byte id can address.
	ErrTooManyFields = errors.New("state: too many fields")
)

// MaxFields is the largest number of telemetry values plus parameters a
// node may declare. Field id 0xFF is reserved for "unknown".
const MaxFields = 255

// Telemetry is a read-only value published by the node.
type Telemetry struct {
	Name  string
	Value uint32
	Type  DataType
}

// Parameter is a value the master may overwrite unless it is locked.
type Parameter struct {
	Name   string
	Value  uint32
	Locked bool
	Type   DataType
}

// FieldKind tells which collection a field belongs to.
type FieldKind uint8

const (
	FieldTelemetry FieldKind = iota
	FieldParameter
)

func (k FieldKind) String() string {
	if k == FieldParameter {
		return "parameter"
	}
	return "telemetry"
}

// Field is one entry of the node's field catalogue.
type Field struct {
	ID   uint8
	Name string
	Kind FieldKind
	Type DataType
}

// Node is the typed state of a liquid node.
type Node struct {
	ID           uint8
	Frequency    uint32
	FirmwareHash uint32
	LiquidHash   uint32
	DeviceName   string

	telemetry  map[string]*Telemetry
	parameters map[string]*Parameter
	fields     []Field // nil until first use after a change
}

// NewNode returns a node with no telemetry values or parameters.
func NewNode(id uint8) *Node {
	return &Node{
		ID:         id,
		telemetry:  make(map[string]*Telemetry),
		parameters: make(map[string]*Parameter),
	}
}

func (n *Node) addCheck(name string) error {
	if _, ok := n.telemetry[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if _, ok := n.parameters[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if len(n.telemetry)+len(n.parameters) >= MaxFields {
		return fmt.Errorf("%w: limit %d", ErrTooManyFields, MaxFields)
	}
	return nil
}

// AddTelemetry declares a telemetry value.
func (n *Node) AddTelemetry(name string, typ DataType, value uint32) error {
	if err := n.addCheck(name); err != nil {
		return err
	}
	n.telemetry[name] = &Telemetry{Name: name, Value: value, Type: typ}
	n.fields = nil
	return nil
}

// AddParameter declares a parameter.
func (n *Node) AddParameter(name string, typ DataType, value uint32, locked bool) error {
	if err := n.addCheck(name); err != nil {
		return err
	}
	n.parameters[name] = &Parameter{Name: name, Value: value, Locked: locked, Type: typ}
	n.fields = nil
	return nil
}

// TelemetryCount returns the number of telemetry values.
func (n *Node) TelemetryCount() int { return len(n.telemetry) }

// ParameterCount returns the number of parameters.
func (n *Node) ParameterCount() int { return len(n.parameters) }

// Telemetry returns a copy of the named telemetry value.
func (n *Node) Telemetry(name string) (Telemetry, bool) {
	t, ok := n.telemetry[name]
	if !ok {
		return Telemetry{}, false
	}
	return *t, true
}

// Parameter returns a copy of the named parameter.
func (n *Node) Parameter(name string) (Parameter, bool) {
	p, ok := n.parameters[name]
	if !ok {
		return Parameter{}, false
	}
	return *p, true
}

// SetTelemetryValue overwrites a telemetry value. It reports false if no
// telemetry value has that name.
func (n *Node) SetTelemetryValue(name string, v uint32) bool {
	t, ok := n.telemetry[name]
	if ok {
		t.Value = v
	}
	return ok
}

// SetParameterValue overwrites a parameter value regardless of its lock.
// It reports false if no parameter has that name.
func (n *Node) SetParameterValue(name string, v uint32) bool {
	p, ok := n.parameters[name]
	if ok {
		p.Value = v
	}
	return ok
}

// SetParameterLock sets a parameter's lock flag. It reports false if no
// parameter has that name.
func (n *Node) SetParameterLock(name string, locked bool) bool {
	p, ok := n.parameters[name]
	if ok {
		p.Locked = locked
	}
	return ok
}

// Fields returns the field catalogue: telemetry values sorted by name
// followed by parameters sorted by name. A field's id is its index.
func (n *Node) Fields() []Field {
	if n.fields == nil {
		n.fields = n.buildFields()
	}
	out := make([]Field, len(n.fields))
	copy(out, n.fields)
	return out
}

func (n *Node) buildFields() []Field {
	tel := make([]string, 0, len(n.telemetry))
	for name := range n.telemetry {
		tel = append(tel, name)
	}
	par := make([]string, 0, len(n.parameters))
	for name := range n.parameters {
		par = append(par, name)
	}
	sort.Strings(tel)
	sort.Strings(par)

	fields := make([]Field, 0, len(tel)+len(par))
	for _, name := range tel {
		fields = append(fields, Field{ID: uint8(len(fields)), Name: name, Kind: FieldTelemetry, Type: n.telemetry[name].Type})
	}
	for _, name := range par {
		fields = append(fields, Field{ID: uint8(len(fields)), Name: name, Kind: FieldParameter, Type: n.parameters[name].Type})
	}
	return fields
}

// Field returns the catalogue entry with the given id.
func (n *Node) Field(id uint8) (Field, bool) {
	if n.fields == nil {
		n.fields = n.buildFields()
	}
	if int(id) >= len(n.fields) {
		return Field{}, false
	}
	return n.fields[id], true
}

// FieldByName returns the catalogue entry for a telemetry value or
// parameter name.
func (n *Node) FieldByName(name string) (Field, bool) {
	if n.fields == nil {
		n.fields = n.buildFields()
	}
	for _, f := range n.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldValue returns the current value of f.
func (n *Node) FieldValue(f Field) uint32 {
	switch f.Kind {
	case FieldTelemetry:
		if t, ok := n.telemetry[f.Name]; ok {
			return t.Value
		}
	case FieldParameter:
		if p, ok := n.parameters[f.Name]; ok {
			return p.Value
		}
	}
	return 0
}
