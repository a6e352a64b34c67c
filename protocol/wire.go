package protocol

import (
	"encoding/binary"
	"fmt"
)

// Tagged is implemented by every variant of a command union. Tag returns the
// variant's discriminant, the first byte of its wire encoding.
type Tagged interface {
	Tag() uint8
}

// Layout describes how one variant of a command union is laid out in a
// fixed-size wire slot:
//
//	tag (1 byte) | body (Size bytes, fields in declared order) | Pad zero bytes
//
// Put writes the variant's fields into body (len(body) == Size). Parse reads
// them back and must not retain body. Both may be nil when Size is zero, in
// which case Parse's result is Zero.
type Layout[C Tagged] struct {
	Tag   uint8
	Name  string
	Size  int
	Pad   int
	Zero  C
	Put   func(cmd C, body []byte)
	Parse func(body []byte) C
}

// Table encodes and decodes one command union into a wire slot of a
// declared size. Every layout is checked against that size when the table
// is built, so a single mis-declared pad fails construction regardless of
// which variants are ever exercised.
type Table[C Tagged] struct {
	name    string
	size    int
	byTag   [256]*Layout[C]
	layouts []Layout[C]
}

// NewTable builds a table for a wire slot of size bytes. It returns an error
// unless every layout satisfies 1 + Size + Pad == size, tags are unique and
// payload-carrying layouts provide both Put and Parse.
func NewTable[C Tagged](name string, size int, layouts ...Layout[C]) (*Table[C], error) {
	t := &Table[C]{name: name, size: size, layouts: make([]Layout[C], len(layouts))}
	copy(t.layouts, layouts)
	for i := range t.layouts {
		l := &t.layouts[i]
		if l.Size < 0 || l.Pad < 0 {
			return nil, fmt.Errorf("protocol: %s.%s: negative size or pad", name, l.Name)
		}
		if got := 1 + l.Size + l.Pad; got != size {
			return nil, fmt.Errorf("protocol: %s.%s: 1 + %d + pad %d = %d, want %d",
				name, l.Name, l.Size, l.Pad, got, size)
		}
		if l.Size > 0 && (l.Put == nil || l.Parse == nil) {
			return nil, fmt.Errorf("protocol: %s.%s: missing Put/Parse for %d byte body", name, l.Name, l.Size)
		}
		if any(l.Zero) == nil {
			return nil, fmt.Errorf("protocol: %s.%s: missing Zero value", name, l.Name)
		}
		if l.Zero.Tag() != l.Tag {
			return nil, fmt.Errorf("protocol: %s.%s: declared tag %d, variant reports %d",
				name, l.Name, l.Tag, l.Zero.Tag())
		}
		if prev := t.byTag[l.Tag]; prev != nil {
			return nil, fmt.Errorf("protocol: %s: tag %d used by %s and %s", name, l.Tag, prev.Name, l.Name)
		}
		t.byTag[l.Tag] = l
	}
	return t, nil
}

// MustTable is NewTable that panics on a layout error. Command packages
// declare their tables as package-level variables with it, so a bad layout
// stops the program (and every test binary) during initialization.
func MustTable[C Tagged](name string, size int, layouts ...Layout[C]) *Table[C] {
	t, err := NewTable(name, size, layouts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Size returns the declared wire slot size.
func (t *Table[C]) Size() int { return t.size }

// Layouts returns the registered layouts in declaration order.
func (t *Table[C]) Layouts() []Layout[C] {
	out := make([]Layout[C], len(t.layouts))
	copy(out, t.layouts)
	return out
}

// Name returns the variant name registered for tag, or a placeholder.
func (t *Table[C]) Name(tag uint8) string {
	if l := t.byTag[tag]; l != nil {
		return l.Name
	}
	return fmt.Sprintf("%s(unknown %d)", t.name, tag)
}

// Known reports whether a variant is registered for tag.
func (t *Table[C]) Known(tag uint8) bool {
	return t.byTag[tag] != nil
}

// ToWire encodes cmd into a fresh Size()-byte slice: tag, body, zeroed pad.
// Encoding a variant that is not registered is a programming error and panics.
func (t *Table[C]) ToWire(cmd C) []byte {
	tag := cmd.Tag()
	l := t.byTag[tag]
	if l == nil {
		panic(fmt.Sprintf("protocol: %s: no layout for tag %d (%T)", t.name, tag, cmd))
	}
	out := make([]byte, t.size)
	out[0] = tag
	if l.Size > 0 {
		l.Put(cmd, out[1:1+l.Size])
	}
	return out
}

// FromWire decodes a tagged encoding. Only the tag and the variant's body
// are read; the pad region is ignored, so ToWire(FromWire(b)) can differ
// from b where b carried non-zero padding.
func (t *Table[C]) FromWire(b []byte) (C, error) {
	var zero C
	if len(b) == 0 {
		return zero, fmt.Errorf("%w: %s: empty input", ErrShortPayload, t.name)
	}
	l := t.byTag[b[0]]
	if l == nil {
		return zero, fmt.Errorf("%w: %s: %d", ErrUnknownTag, t.name, b[0])
	}
	if len(b)-1 < l.Size {
		return zero, fmt.Errorf("%w: %s.%s needs %d bytes, got %d", ErrShortPayload, t.name, l.Name, l.Size, len(b)-1)
	}
	if l.Size == 0 {
		return l.Zero, nil
	}
	return l.Parse(b[1 : 1+l.Size]), nil
}

// PutU32 writes v little-endian at b[0:4].
func PutU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// U32 reads a little-endian uint32 from b[0:4].
func U32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
