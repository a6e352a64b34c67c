// Package protocol implements the node wire protocol shared by every
// channel family:
//   - MessageID, the bit-packed identifier carried in the 11-bit CAN
//     arbitration field
//   - Envelope, the fixed 64-byte CAN FD payload (channel, buffer type,
//     command id, 62-byte command region)
//   - Table, a table-driven encoder for tagged command unions into one
//     fixed-size, zero-padded wire slot
//   - the common command numbers and payloads reused by channel families
//
// All multi-byte integers are little-endian.
package protocol
