package reporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl/coordinator"
)

func TestTriggerReportsImmediately(t *testing.T) {
	coord := coordinator.New(nil)
	r := New(coord, "test", func() model.Timestamp { return model.Timestamp{Seconds: 42} })
	r.interval = time.Hour
	r.Start()
	defer func() { r.Cancel(); r.Wait() }()

	r.Trigger()

	assert.Eventually(t, func() bool {
		return coord.GetMyLastOptime() == model.Timestamp{Seconds: 42}
	}, time.Second, 5*time.Millisecond)
}

func TestCancelStopsTheLoop(t *testing.T) {
	coord := coordinator.New(nil)
	r := New(coord, "test", func() model.Timestamp { return model.Timestamp{} })
	r.interval = 5 * time.Millisecond
	r.Start()
	assert.True(t, r.IsActive())

	r.Cancel()
	r.Wait()
	assert.False(t, r.IsActive())
}

func TestPeriodicReportsWithoutTrigger(t *testing.T) {
	coord := coordinator.New(nil)
	calls := 0
	r := New(coord, "test", func() model.Timestamp {
		calls++
		return model.Timestamp{Seconds: uint32(calls)}
	})
	r.interval = 5 * time.Millisecond
	r.Start()
	defer func() { r.Cancel(); r.Wait() }()

	assert.Eventually(t, func() bool {
		return !coord.GetMyLastOptime().IsZero()
	}, time.Second, 5*time.Millisecond)
}
