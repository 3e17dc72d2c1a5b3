package session

import (
	"context"
	"io"
	"sync"
	"time"
)

// fakeTransport is an in-memory session.Transport double: a scripted read
// queue plus a captured write log, so handshake and
// steady-state behavior can be driven without a real socket. Unlike a fixed
// script, ReadMessage blocks once the queue is drained instead of returning
// EOF immediately, so a test can pushMessage() more traffic after the handshake has
// consumed the initial script — matching a real socket's blocking read.
type fakeTransport struct {
	mu      sync.Mutex
	toRead  [][]byte
	readIdx int
	writes  [][]byte
	closed  bool
	ended   bool // set by endStream to make the next drained read return io.EOF
}

func newFakeTransport(messages ...[]byte) *fakeTransport {
	return &fakeTransport{toRead: messages}
}

func (f *fakeTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	for {
		f.mu.Lock()
		if f.readIdx < len(f.toRead) {
			msg := f.toRead[f.readIdx]
			f.readIdx++
			f.mu.Unlock()
			return msg, nil
		}
		ended := f.ended
		f.mu.Unlock()
		if ended {
			return nil, io.EOF
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// endStream marks the script as complete: once drained, ReadMessage returns
// io.EOF instead of blocking further.
func (f *fakeTransport) endStream() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = true
}

func (f *fakeTransport) WriteMessage(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) writtenStrings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	for i, w := range f.writes {
		out[i] = string(w)
	}
	return out
}

// pushMessage appends another scripted inbound payload, usable from a test
// goroutine to feed the handshake progressively.
func (f *fakeTransport) pushMessage(payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toRead = append(f.toRead, payload)
}

type fakeDialer struct {
	transport *fakeTransport
	err       error
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Transport, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.transport, nil
}
