package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"chartstream/protocol"
)

// reader owns the transport's read half and the frame reassembly buffer.
// It runs on its own goroutine, started by Run, and appends every
// successfully parsed message to the shared inboundBuffer in arrival order.
type reader struct {
	name      string
	transport Transport
	buffer    *inboundBuffer
	pending   []byte
}

func newReader(name string, transport Transport, buffer *inboundBuffer) *reader {
	return &reader{name: name, transport: transport, buffer: buffer}
}

// run loops until the transport ends or ctx is cancelled, parsing envelopes
// and messages and appending them to buffer. It returns nil on a clean end
// of stream, ErrTruncatedStream on a partial envelope at EOF, or any fatal
// codec/parse/transport error, which is fatal for the connection.
func (r *reader) run(ctx context.Context) error {
	for {
		for {
			rest, body, err := protocol.ParseEnvelope(r.pending)
			if errors.Is(err, protocol.ErrIncomplete) {
				break
			}
			if err != nil {
				return fmt.Errorf("reader[%s]: frame error: %w", r.name, err)
			}
			r.pending = rest

			msg, perr := protocol.ParseMessage(body)
			if perr != nil {
				return fmt.Errorf("reader[%s]: parse error: %w", r.name, perr)
			}
			log.Debug().Str("component", "reader").Str("session", r.name).Str("kind", msg.Kind.String()).Msg("📥 message parsed")
			r.buffer.append(msg)
		}

		payload, err := r.transport.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(r.pending) > 0 {
					return ErrTruncatedStream
				}
				return nil
			}
			return fmt.Errorf("reader[%s]: transport error: %w", r.name, err)
		}
		r.pending = append(r.pending, payload...)
	}
}
