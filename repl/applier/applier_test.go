package applier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl/executor"
)

func newExec(t *testing.T) executor.Executor {
	e := executor.NewPoolExecutor(2)
	e.Start()
	t.Cleanup(e.Shutdown)
	return e
}

func TestBatchApplierAppliesAndReportsTimestamp(t *testing.T) {
	e := newExec(t)
	ops := []model.Document{{"ts": model.Timestamp{Seconds: 1}}, {"ts": model.Timestamp{Seconds: 2}}}

	applyFn := func(in []model.Document) (model.Timestamp, error) {
		last, _ := in[len(in)-1].Ts()
		return last, nil
	}

	done := make(chan model.Timestamp, 1)
	a := New(e, ops, applyFn, func(ts model.Timestamp, err error, applied []model.Document) {
		assert.NoError(t, err)
		assert.Equal(t, ops, applied)
		done <- ts
	})
	a.Start()

	select {
	case ts := <-done:
		assert.Equal(t, model.Timestamp{Seconds: 2}, ts)
	case <-time.After(time.Second):
		t.Fatal("completion never fired")
	}
	assert.False(t, a.IsActive())
}

func TestBatchApplierPropagatesApplyError(t *testing.T) {
	e := newExec(t)
	boom := assert.AnError

	done := make(chan error, 1)
	a := New(e, nil, func([]model.Document) (model.Timestamp, error) {
		return model.Timestamp{}, boom
	}, func(ts model.Timestamp, err error, ops []model.Document) {
		done <- err
	})
	a.Start()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("completion never fired")
	}
}
