package session

import "context"

// Transport is the split read/write collaborator the orchestrator drives:
// reliable, ordered delivery of text payloads, without naming a concrete
// WebSocket library, so tests can substitute an in-memory fake instead of
// dialing a real socket — the same seam the alpaca-trade-api-go stream
// client uses for its connCreator.
type Transport interface {
	// ReadMessage blocks for the next text payload. It returns an error
	// wrapping io.EOF (or equivalent) when the transport has ended cleanly.
	ReadMessage(ctx context.Context) ([]byte, error)
	// WriteMessage sends one text payload.
	WriteMessage(ctx context.Context, payload []byte) error
	// Close releases the transport's resources.
	Close() error
}

// Dialer opens a Transport to the given URL. wsconn.Dialer is the production
// implementation, backed by gorilla/websocket.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}
