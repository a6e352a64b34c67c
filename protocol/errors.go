package protocol

import "errors"

var (
	// ErrIDOutOfRange reports an identifier field or packed value that does
	// not fit standard 11-bit addressing.
	ErrIDOutOfRange = errors.New("protocol: identifier out of range")

	// ErrFrameLength reports a frame whose payload is not exactly FrameSize bytes.
	ErrFrameLength = errors.New("protocol: invalid frame length")

	// ErrChannelOutOfRange reports a channel id above MaxChannelID.
	ErrChannelOutOfRange = errors.New("protocol: channel id out of range")

	// ErrPayloadTooLong reports an envelope payload above PayloadSize bytes.
	ErrPayloadTooLong = errors.New("protocol: payload too long")

	// ErrUnknownTag reports a command tag no variant is registered for.
	ErrUnknownTag = errors.New("protocol: unknown command tag")

	// ErrShortPayload reports a command body shorter than its variant requires.
	ErrShortPayload = errors.New("protocol: payload too short")
)
