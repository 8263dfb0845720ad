// Package buffer implements the bounded oplog FIFO (the distilled spec's
// C3): a byte-accounted queue the oplog fetcher pushes into and the batch
// applier drains.
package buffer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tidwall/btree"

	"github.com/doriscore/datareplicator/model"
)

const treeDegree = 32

// Buffer is an ordered map keyed by a monotonically increasing sequence
// number rather than a plain slice, so capacity accounting and iteration
// stay O(log n) under concurrent push/pop — the same shape as the
// teacher's btree.Map-backed tablet index (ccr/meta.go), repurposed here
// to keep insertion order instead of tablet id order.
type Buffer struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	items    *btree.Map[uint64, model.Document]
	nextSeq  uint64
	size     int64
	capacity int64
}

// New builds a Buffer bounded at capacityBytes of serialised document size.
func New(capacityBytes int64) *Buffer {
	b := &Buffer{
		items:    btree.NewMap[uint64, model.Document](treeDegree),
		capacity: capacityBytes,
	}
	b.notFull = sync.NewCond(&b.mu)
	return b
}

// docCost approximates the serialised byte size of doc; a marshal failure
// (an unsupported field type) still costs something rather than being
// free, so pathological documents can't defeat capacity accounting.
func docCost(doc model.Document) int64 {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 1
	}
	return int64(len(raw))
}

// Push appends doc to the tail, blocking while the buffer is at capacity.
// It returns ctx.Err() if ctx is canceled before space frees; a nil ctx
// disables cancellation (the caller must guarantee space eventually
// frees, e.g. in tests).
func (b *Buffer) Push(ctx context.Context, doc model.Document) error {
	cost := docCost(doc)

	if ctx != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				b.mu.Lock()
				b.notFull.Broadcast()
				b.mu.Unlock()
			case <-done:
			}
		}()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for b.items.Len() > 0 && b.size+cost > b.capacity {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		b.notFull.Wait()
	}
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	b.items.Set(b.nextSeq, doc)
	b.nextSeq++
	b.size += cost
	return nil
}

// TryPop removes and returns the oldest document, or (nil, false) if the
// buffer is empty. Non-blocking.
func (b *Buffer) TryPop() (model.Document, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k, v, ok := b.items.Min()
	if !ok {
		return nil, false
	}
	b.items.Delete(k)
	b.size -= docCost(v)
	if b.size < 0 {
		b.size = 0
	}
	b.notFull.Broadcast()
	return v, true
}

// Clear empties the buffer, releasing any pusher blocked on capacity.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items.Clear()
	b.size = 0
	b.nextSeq = 0
	b.notFull.Broadcast()
}

// Size reports the current accounted byte size.
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Len reports the current document count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.Len()
}

func (b *Buffer) IsEmpty() bool {
	return b.Len() == 0
}

// Capacity reports the configured byte capacity.
func (b *Buffer) Capacity() int64 {
	return b.capacity
}
