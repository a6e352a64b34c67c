package master

import (
	"errors"
	"fmt"
)

// ErrUnexpectedReply reports a reply of a different kind than requested.
var ErrUnexpectedReply = errors.New("master: unexpected reply")

func unexpected(name string) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedReply, name)
}
