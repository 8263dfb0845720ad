// Package fetcher drives a remote find+getMore cursor as a sequence of
// batches (the distilled spec's C1, "Query Fetcher"), and specialises it
// into an Oplog Fetcher (C2) that validates the first batch's starting
// timestamp.
package fetcher

import (
	"context"
	"errors"
	"sync"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl/executor"
	"github.com/doriscore/datareplicator/xerror"
)

// ErrAlreadyActive is returned by Schedule when the fetcher is already
// running a cursor.
var ErrAlreadyActive = errors.New("fetcher already active")

// NextAction is written by the batch callback to tell the fetcher whether
// to continue with getMore or stop.
type NextAction int

const (
	ActionContinue NextAction = iota
	ActionNone
)

// BatchResult is delivered to the callback for every batch, including the
// terminal one (where Err may be a cancellation or a real failure).
type BatchResult struct {
	Docs []model.Document
	Err  error
}

// Callback receives a batch and decides whether the fetcher should
// continue (the default) or stop (*next = ActionNone).
type Callback func(result BatchResult, next *NextAction)

// Opener issues the initial find and returns the first batch plus a
// cursor id (0 means the cursor is already exhausted).
type Opener func(ctx context.Context) (docs []model.Document, cursorID int64, err error)

// Continuer issues getMore against a live cursor.
type Continuer func(ctx context.Context, cursorID int64) (docs []model.Document, nextCursorID int64, err error)

// QueryFetcher is the generic C1 cursor driver: schedule, cancel, wait.
type QueryFetcher struct {
	exec executor.Executor
	open Opener
	cont Continuer
	cb   Callback

	mu     sync.Mutex
	active bool
	handle executor.Handle
	done   chan struct{}
}

func NewQueryFetcher(exec executor.Executor, open Opener, cont Continuer, cb Callback) *QueryFetcher {
	return &QueryFetcher{exec: exec, open: open, cont: cont, cb: cb}
}

// Schedule begins the cursor; fails with ErrAlreadyActive if a cursor is
// already in flight.
func (f *QueryFetcher) Schedule() error {
	f.mu.Lock()
	if f.active {
		f.mu.Unlock()
		return ErrAlreadyActive
	}
	f.active = true
	f.done = make(chan struct{})
	f.mu.Unlock()

	h := f.exec.ScheduleRemoteCommand(func(args executor.CallbackArgs) {
		f.onFired(args, f.open)
	})
	f.mu.Lock()
	f.handle = h
	f.mu.Unlock()
	return nil
}

// Cancel signals the in-flight remote command to abort; the in-flight
// callback still fires, with CallbackCanceled, via the executor's own
// cancellation contract.
func (f *QueryFetcher) Cancel() {
	f.mu.Lock()
	h := f.handle
	f.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// Wait blocks until no callback remains in flight for this fetcher.
func (f *QueryFetcher) Wait() {
	f.mu.Lock()
	active := f.active
	done := f.done
	f.mu.Unlock()
	if !active {
		return
	}
	<-done
}

func (f *QueryFetcher) IsActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *QueryFetcher) onFired(args executor.CallbackArgs, fetch func(ctx context.Context) ([]model.Document, int64, error)) {
	if args.Status != nil {
		f.deliverTerminal(args.Status)
		return
	}
	docs, cursorID, err := fetch(context.Background())
	f.handleBatch(docs, cursorID, err)
}

func (f *QueryFetcher) deliverTerminal(err error) {
	next := ActionNone
	if f.cb != nil {
		f.cb(BatchResult{Err: err}, &next)
	}
	f.terminate()
}

func (f *QueryFetcher) handleBatch(docs []model.Document, cursorID int64, err error) {
	next := ActionContinue
	if err != nil || cursorID == 0 {
		next = ActionNone
	}
	if f.cb != nil {
		f.cb(BatchResult{Docs: docs, Err: err}, &next)
	}

	if next == ActionNone {
		f.terminate()
		return
	}

	h := f.exec.ScheduleRemoteCommand(func(args executor.CallbackArgs) {
		f.onFired(args, func(ctx context.Context) ([]model.Document, int64, error) {
			return f.cont(ctx, cursorID)
		})
	})
	f.mu.Lock()
	f.handle = h
	f.mu.Unlock()
}

func (f *QueryFetcher) terminate() {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return
	}
	f.active = false
	done := f.done
	f.mu.Unlock()
	close(done)
}

// OplogFetcher extends QueryFetcher with a starting timestamp: the first
// batch's first document must carry ts == startTS, or the fetcher fails
// with xerror.ErrOplogStartMissing and forces ActionNone.
type OplogFetcher struct {
	inner   *QueryFetcher
	startTS model.Timestamp

	mu       sync.Mutex
	sawFirst bool
}

// NewOplogFetcher builds a fetcher that opens at startTS via open and
// continues via cont; cb receives the validated first batch and every
// non-empty batch after it (empty follow-up batches are swallowed, per the
// distilled spec).
func NewOplogFetcher(exec executor.Executor, startTS model.Timestamp, open Opener, cont Continuer, cb Callback) *OplogFetcher {
	of := &OplogFetcher{startTS: startTS}
	of.inner = NewQueryFetcher(exec, open, cont, of.wrap(cb))
	return of
}

func (of *OplogFetcher) wrap(cb Callback) Callback {
	return func(result BatchResult, next *NextAction) {
		of.mu.Lock()
		first := !of.sawFirst
		of.sawFirst = true
		of.mu.Unlock()

		if first {
			if result.Err != nil {
				if cb != nil {
					cb(result, next)
				}
				return
			}
			if len(result.Docs) == 0 {
				*next = ActionNone
				if cb != nil {
					cb(BatchResult{Err: xerror.Wrap(xerror.ErrOplogStartMissing, xerror.Sync, xerror.KindOplogStartMissing, "empty first oplog batch")}, next)
				}
				return
			}
			ts, ok := result.Docs[0].Ts()
			if !ok || ts.Compare(of.startTS) != 0 {
				*next = ActionNone
				if cb != nil {
					cb(BatchResult{Err: xerror.Wrapf(xerror.ErrOplogStartMissing, xerror.Sync, xerror.KindOplogStartMissing, "first oplog entry ts %v != requested start %v", ts, of.startTS)}, next)
				}
				return
			}
			if cb != nil {
				cb(result, next)
			}
			return
		}

		// Subsequent batches: empty ones produce no callback invocation,
		// but still respect the default continue/stop decision already
		// computed by QueryFetcher from err/cursorID.
		if len(result.Docs) == 0 && result.Err == nil {
			return
		}
		if cb != nil {
			cb(result, next)
		}
	}
}

func (of *OplogFetcher) Schedule() error { return of.inner.Schedule() }
func (of *OplogFetcher) Cancel()         { of.inner.Cancel() }
func (of *OplogFetcher) Wait()           { of.inner.Wait() }
func (of *OplogFetcher) IsActive() bool  { return of.inner.IsActive() }
