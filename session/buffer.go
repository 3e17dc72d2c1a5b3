package session

import (
	"context"
	"sync"
	"time"

	"chartstream/protocol"
)

// pollInterval bounds how often awaitMatching re-scans the buffer while
// waiting for a predicate to match, bounded above by a few milliseconds.
const pollInterval = 2 * time.Millisecond

// inboundBuffer is the shared ordered holding area between the reader task
// and the orchestrator.
// The reader appends under an exclusive lock; predicate searches take a
// shared lock and upgrade to exclusive only to remove a match.
type inboundBuffer struct {
	mu    sync.RWMutex
	items []*protocol.Message
}

func newInboundBuffer() *inboundBuffer {
	return &inboundBuffer{}
}

// append adds a message to the tail, preserving reader delivery order (I5).
func (b *inboundBuffer) append(msg *protocol.Message) {
	b.mu.Lock()
	b.items = append(b.items, msg)
	b.mu.Unlock()
}

// tryRemoveMatching scans from the oldest entry and removes the first one
// satisfying predicate, leaving all other entries in their original relative
// order (I4: once removed, never reinserted).
func (b *inboundBuffer) tryRemoveMatching(predicate func(*protocol.Message) bool) *protocol.Message {
	b.mu.RLock()
	found := false
	for _, m := range b.items {
		if predicate(m) {
			found = true
			break
		}
	}
	b.mu.RUnlock()
	if !found {
		return nil
	}

	// sync.RWMutex cannot upgrade in place, so rescan under the exclusive
	// lock: another remover may have run between the two locks.
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, m := range b.items {
		if predicate(m) {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return m
		}
	}
	return nil
}

// awaitMatching polls until a message satisfying predicate is available or
// ctx is cancelled.
func (b *inboundBuffer) awaitMatching(ctx context.Context, predicate func(*protocol.Message) bool) (*protocol.Message, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if m := b.tryRemoveMatching(predicate); m != nil {
			return m, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// awaitAny returns the oldest entry regardless of kind.
func (b *inboundBuffer) awaitAny(ctx context.Context) (*protocol.Message, error) {
	return b.awaitMatching(ctx, func(*protocol.Message) bool { return true })
}

// withTimeout races f against duration and returns the context's deadline
// error if f has not completed first. It does not cancel f's side effects:
// a predicate already matched by the reader remains in the buffer for the
// next await.
func withTimeout[T any](ctx context.Context, duration time.Duration, f func(context.Context) (T, error)) (T, error) {
	var zero T
	timeoutCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	result, err := f(timeoutCtx)
	if err != nil {
		if timeoutCtx.Err() != nil && ctx.Err() == nil {
			return zero, context.DeadlineExceeded
		}
		return zero, err
	}
	return result, nil
}
