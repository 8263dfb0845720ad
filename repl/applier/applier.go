// Package applier implements the Batch Applier (C6): it submits one
// buffered batch of oplog operations to the external apply function and
// reports back the timestamp of the last op successfully applied.
package applier

import (
	"sync"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl/executor"
)

// CompletionFn is invoked exactly once when the scheduled apply finishes,
// successfully or not.
type CompletionFn func(ts model.Timestamp, err error, ops []model.Document)

// BatchApplier runs one batch through model.ApplierFn on the executor.
// Invariant 4 (at most one applier active) is enforced by the caller
// (repl.DataReplicator), not here — this type only knows about its own
// single batch.
type BatchApplier struct {
	ops          []model.Document
	applyFn      model.ApplierFn
	completionFn CompletionFn
	exec         executor.Executor

	mu     sync.Mutex
	active bool
	handle executor.Handle
}

func New(exec executor.Executor, ops []model.Document, applyFn model.ApplierFn, completionFn CompletionFn) *BatchApplier {
	return &BatchApplier{exec: exec, ops: ops, applyFn: applyFn, completionFn: completionFn}
}

// Start schedules the apply on the executor's DB-work queue (exclusive:
// writing the destination dataset conflicts with itself, not with reads).
func (a *BatchApplier) Start() {
	a.mu.Lock()
	a.active = true
	a.mu.Unlock()

	h := a.exec.ScheduleDBWork(executor.ModeExclusive, func(args executor.CallbackArgs) {
		defer func() {
			a.mu.Lock()
			a.active = false
			a.mu.Unlock()
		}()

		if args.Status != nil {
			a.completionFn(model.Timestamp{}, args.Status, a.ops)
			return
		}

		ts, err := a.applyFn(a.ops)
		a.completionFn(ts, err, a.ops)
	})

	a.mu.Lock()
	a.handle = h
	a.mu.Unlock()
}

func (a *BatchApplier) Cancel() {
	a.mu.Lock()
	h := a.handle
	a.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

func (a *BatchApplier) Wait() {
	a.mu.Lock()
	h := a.handle
	a.mu.Unlock()
	if h != nil {
		h.Wait()
	}
}

func (a *BatchApplier) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Operations returns the batch this applier was constructed with, used by
// the missing-document protocol to inspect the first failing op.
func (a *BatchApplier) Operations() []model.Document {
	return a.ops
}
