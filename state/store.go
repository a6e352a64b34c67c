// Package state holds the in-memory node state the dispatch engine reads
// and mutates: a flat key/value Store for GenericChannel nodes and a typed
// Node record for liquid nodes. State is owned by a single goroutine and is
// never written back to disk.
package state

import (
	"encoding/binary"
	"sort"
	"strconv"
)

// Keys of the flat store read by the GenericChannel handlers.
const (
	KeyCANID               = "General.can_id"
	KeyVariablesPrefix     = "GenericChannel.Variables."
	KeyReqDataChannelMask  = "GenericChannel.GenericReqData.channel_mask"
	KeyReqDataData         = "GenericChannel.GenericReqData.data"
	KeyNodeInfoFirmware    = "GenericChannel.GenericRequestNodeInfo.firmware_version"
	KeyNodeInfoChannelMask = "GenericChannel.GenericRequestNodeInfo.channel_mask"
	KeyNodeInfoChannelType = "GenericChannel.GenericRequestNodeInfo.channel_type"
	KeyFlashClearStatus    = "GenericChannel.GenericReqFlashClear.status"
)

// VariableKey returns the store key of GenericChannel variable id.
func VariableKey(id uint8) string {
	return KeyVariablesPrefix + strconv.Itoa(int(id))
}

// Store maps string keys to byte blobs. Reads of missing keys through the
// fixed-width accessors yield zero values, so a handler never fails because
// a value was not configured.
type Store struct {
	m map[string][]byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{m: make(map[string][]byte)}
}

// Set stores a copy of v under key.
func (s *Store) Set(key string, v []byte) {
	s.m[key] = append([]byte(nil), v...)
}

// SetU32 stores v as four little-endian bytes.
func (s *Store) SetU32(key string, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.Set(key, b[:])
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	v, ok := s.m[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// BytesOrZeros returns the first n bytes stored under key. Shorter values
// are zero-extended and a missing key yields n zero bytes.
func (s *Store) BytesOrZeros(key string, n int) []byte {
	out := make([]byte, n)
	copy(out, s.m[key])
	return out
}

// U8OrZero reads the first byte stored under key.
func (s *Store) U8OrZero(key string) uint8 {
	return s.BytesOrZeros(key, 1)[0]
}

// U32OrZero reads the first four bytes stored under key as a little-endian
// uint32. Wider values are narrowed to their low 32 bits.
func (s *Store) U32OrZero(key string) uint32 {
	return binary.LittleEndian.Uint32(s.BytesOrZeros(key, 4))
}

// Len returns the number of stored keys.
func (s *Store) Len() int { return len(s.m) }

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
