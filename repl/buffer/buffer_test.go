package buffer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doriscore/datareplicator/model"
)

func doc(ts uint32) model.Document {
	return model.Document{"ts": model.Timestamp{Seconds: ts}, "pad": "x"}
}

func TestPushPopFIFOOrder(t *testing.T) {
	b := New(1 << 20)
	for i := uint32(1); i <= 5; i++ {
		assert.NoError(t, b.Push(context.Background(), doc(i)))
	}

	for i := uint32(1); i <= 5; i++ {
		d, ok := b.TryPop()
		assert.True(t, ok)
		ts, _ := d.Ts()
		assert.Equal(t, i, ts.Seconds)
	}

	_, ok := b.TryPop()
	assert.False(t, ok)
}

func TestTryPopEmptyIsNonBlocking(t *testing.T) {
	b := New(1024)
	_, ok := b.TryPop()
	assert.False(t, ok)
}

func TestClearEmptiesAndResetsSize(t *testing.T) {
	b := New(1 << 20)
	for i := uint32(0); i < 3; i++ {
		assert.NoError(t, b.Push(context.Background(), doc(i)))
	}
	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(0), b.Size())
}

func TestPushBlocksUntilCapacityFreesThenSucceeds(t *testing.T) {
	one := doc(1)
	cost := docCost(one)
	b := New(cost) // room for exactly one document

	assert.NoError(t, b.Push(context.Background(), one))

	pushed := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pushed <- b.Push(context.Background(), doc(2))
	}()

	select {
	case <-pushed:
		t.Fatal("push should have blocked while buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	_, ok := b.TryPop()
	assert.True(t, ok)

	select {
	case err := <-pushed:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("push never unblocked after TryPop freed space")
	}
	wg.Wait()
}

func TestPushRespectsContextCancellation(t *testing.T) {
	one := doc(1)
	b := New(docCost(one))
	assert.NoError(t, b.Push(context.Background(), one))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Push(ctx, doc(2))
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("push never observed context cancellation")
	}
}
