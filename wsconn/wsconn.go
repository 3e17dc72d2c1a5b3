// Package wsconn adapts github.com/gorilla/websocket to the small
// session.Transport/session.Dialer interfaces, keeping the rest of the
// module free of any concrete WebSocket dependency.
package wsconn

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chartstream/session"
)

// Conn wraps one gorilla/websocket connection. Reads and writes are each
// confined to their own goroutine by the caller (session.reader owns
// ReadMessage exclusively, session.writer owns WriteMessage exclusively) so
// no internal locking is needed beyond what gorilla's Conn already requires
// for concurrent use of distinct read/write halves.
type Conn struct {
	conn *websocket.Conn
}

// Dialer dials wss:// URLs against host, producing Conn values that satisfy
// session.Transport. Host carries scheme and authority only; the
// query-qualified path is session.SocketPath.
type Dialer struct {
	Host string
}

// NewDialer builds a Dialer for host, e.g. "wss://data.example.com".
func NewDialer(host string) *Dialer {
	return &Dialer{Host: host}
}

// Dial opens a WebSocket connection to d.Host+path and returns it wrapped as
// a session.Transport. Binary frames are never sent by this core (spec
// Non-goals); only text frames are read and written.
func (d *Dialer) Dial(ctx context.Context, path string) (session.Transport, error) {
	full := d.Host + path
	u, err := url.Parse(full)
	if err != nil {
		return nil, fmt.Errorf("wsconn: parse url %q: %w", full, err)
	}

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("wsconn: dial %s: %w", u.String(), err)
	}
	log.Info().Str("component", "wsconn").Str("url", u.String()).Msg("🔌 websocket connected")
	return &Conn{conn: conn}, nil
}

// ReadMessage blocks for the next text payload, applying ctx as a read
// deadline. It wraps io.EOF when the peer closed cleanly so the reader's
// end-of-stream handling in session.reader can distinguish it from a fatal
// transport error.
func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	}
	kind, payload, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("wsconn: read: %w", err)
	}
	if kind != websocket.TextMessage {
		return nil, fmt.Errorf("wsconn: unexpected binary frame (unsupported by this protocol)")
	}
	return payload, nil
}

// WriteMessage sends one text frame.
func (c *Conn) WriteMessage(ctx context.Context, payload []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("wsconn: write: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
