package session

import (
	"errors"
	"fmt"
)

// ErrTruncatedStream is returned by the reader when the transport ends
// while the frame buffer still holds unparsed bytes.
var ErrTruncatedStream = errors.New("session: transport ended with a truncated envelope in flight")

// HandshakeTimeoutError reports that a handshake step's with_timeout wait
// expired before the expected message arrived.
type HandshakeTimeoutError struct {
	Stage string
}

func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("session: handshake timed out waiting for %s", e.Stage)
}
