// Package canbus provides the transport layer of the emulator: CAN and
// CAN FD frames and the buses that carry them.
//
// It includes:
//   - A core Frame type with validation and SocketCAN binary marshaling
//   - An in-memory loopback bus for tests and simulations
//   - A Mux that fans frames out to filtered subscribers
//   - A zap-logging Bus decorator
//   - A Linux SocketCAN driver (linux-only) with CAN FD enabled
package canbus
