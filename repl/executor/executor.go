// Package executor is the concrete scheduling layer the replication state
// machine (repl.DataReplicator) runs on: every piece of work that touches
// replicator state is scheduled here so the state machine itself needs no
// more than one mutex (see repl.DataReplicator's locking discipline).
package executor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/modern-go/gls"
	log "github.com/sirupsen/logrus"

	"github.com/doriscore/datareplicator/xerror"
)

// DBWorkMode mirrors the read/write distinction local storage work can
// need; both modes currently run on the same dispatcher goroutine since
// this executor serializes all local work onto one run thread.
type DBWorkMode int

const (
	ModeShared DBWorkMode = iota
	ModeExclusive
)

// CallbackArgs is passed to every scheduled callback. Status carries
// xerror.ErrCallbackCanceled when the handle was canceled before running;
// callbacks must treat that as a clean exit, never as a failure to retry.
type CallbackArgs struct {
	Status error
}

type CallbackFn func(CallbackArgs)

// Handle lets a caller cancel or wait for work it scheduled. Cancel is
// fire-and-forget: the callback still runs, with Status set to
// xerror.ErrCallbackCanceled.
type Handle interface {
	Cancel()
	Wait()
}

// Event is a one-shot signal; every waiter that calls Wait before or after
// Signal observes the same signal exactly once.
type Event interface {
	Wait()
}

// Executor is the scheduling contract repl.DataReplicator depends on.
type Executor interface {
	ScheduleWork(fn CallbackFn) Handle
	ScheduleWorkAt(deadline time.Time, fn CallbackFn) Handle
	ScheduleRemoteCommand(fn CallbackFn) Handle
	ScheduleDBWork(mode DBWorkMode, fn CallbackFn) Handle
	MakeEvent() Event
	SignalEvent(Event)
	Wait(h Handle)
	WaitForEvent(e Event)
	Now() time.Time
	// IsRunThread reports whether the calling goroutine is the single
	// dispatcher goroutine that runs ScheduleWork/ScheduleWorkAt/
	// ScheduleDBWork callbacks. AssertRunThread is built on it.
	IsRunThread() bool
	Start()
	Shutdown()
}

const runThreadTag = "executor-run-thread"

type task struct {
	fn         CallbackFn
	canceled   atomic.Bool
	cancelCh   chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
	once       sync.Once
}

func newTask(fn CallbackFn) *task {
	return &task{fn: fn, cancelCh: make(chan struct{}), done: make(chan struct{})}
}

func (t *task) run(status error) {
	t.once.Do(func() {
		defer close(t.done)
		if t.canceled.Load() && status == nil {
			status = xerror.ErrCallbackCanceled
		}
		t.fn(CallbackArgs{Status: status})
	})
}

func (t *task) Cancel() {
	t.canceled.Store(true)
	t.cancelOnce.Do(func() { close(t.cancelCh) })
}

func (t *task) Wait() {
	<-t.done
}

type event struct {
	ch   chan struct{}
	once sync.Once
}

func newEvent() *event {
	return &event{ch: make(chan struct{})}
}

func (e *event) signal() {
	e.once.Do(func() { close(e.ch) })
}

func (e *event) Wait() {
	<-e.ch
}

// PoolExecutor is a bounded goroutine-pool Executor: one dispatcher
// goroutine drains local work serially (the "run thread"), and a small
// pool of worker goroutines runs remote-command callbacks concurrently,
// since those block on network I/O and must not stall local work.
//
// Grounded on the teacher's JobManager (goroutine-per-unit-of-work plus
// sync.WaitGroup) and Checker (a single serialized state-dispatch loop).
type PoolExecutor struct {
	localWork  chan *task
	remoteWork chan *task
	remotePool int

	wg   sync.WaitGroup
	stop chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPoolExecutor builds an Executor with remotePool worker goroutines
// for remote commands; remotePool must be at least 1.
func NewPoolExecutor(remotePool int) *PoolExecutor {
	if remotePool < 1 {
		remotePool = 1
	}
	return &PoolExecutor{
		localWork:  make(chan *task, 256),
		remoteWork: make(chan *task, 256),
		remotePool: remotePool,
		stop:       make(chan struct{}),
	}
}

func (e *PoolExecutor) Start() {
	e.startOnce.Do(func() {
		e.wg.Add(1)
		go e.runDispatcher()

		for i := 0; i < e.remotePool; i++ {
			e.wg.Add(1)
			go e.runRemoteWorker()
		}
	})
}

func (e *PoolExecutor) Shutdown() {
	e.stopOnce.Do(func() {
		close(e.stop)
	})
	e.wg.Wait()
}

func (e *PoolExecutor) runDispatcher() {
	defer e.wg.Done()

	gls.ResetGls(gls.GoID(), map[interface{}]interface{}{})
	gls.Set(runThreadTag, true)

	for {
		select {
		case <-e.stop:
			return
		case t := <-e.localWork:
			t.run(nil)
		}
	}
}

func (e *PoolExecutor) runRemoteWorker() {
	defer e.wg.Done()

	for {
		select {
		case <-e.stop:
			return
		case t := <-e.remoteWork:
			t.run(nil)
		}
	}
}

func (e *PoolExecutor) ScheduleWork(fn CallbackFn) Handle {
	t := newTask(fn)
	select {
	case e.localWork <- t:
	case <-e.stop:
		t.run(xerror.ErrCallbackCanceled)
	}
	return t
}

func (e *PoolExecutor) ScheduleDBWork(_ DBWorkMode, fn CallbackFn) Handle {
	return e.ScheduleWork(fn)
}

func (e *PoolExecutor) ScheduleWorkAt(deadline time.Time, fn CallbackFn) Handle {
	t := newTask(fn)
	delay := time.Until(deadline)
	if delay <= 0 {
		select {
		case e.localWork <- t:
		case <-e.stop:
			t.run(xerror.ErrCallbackCanceled)
		}
		return t
	}

	timer := time.NewTimer(delay)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			select {
			case e.localWork <- t:
			case <-e.stop:
				t.run(xerror.ErrCallbackCanceled)
			}
		case <-t.cancelCh:
			// Canceled before its deadline: run now with CallbackCanceled.
			select {
			case e.localWork <- t:
			case <-e.stop:
				t.run(xerror.ErrCallbackCanceled)
			}
		case <-e.stop:
			t.run(xerror.ErrCallbackCanceled)
		}
	}()
	return t
}

func (e *PoolExecutor) ScheduleRemoteCommand(fn CallbackFn) Handle {
	t := newTask(fn)
	select {
	case e.remoteWork <- t:
	case <-e.stop:
		t.run(xerror.ErrCallbackCanceled)
	}
	return t
}

func (e *PoolExecutor) MakeEvent() Event {
	return newEvent()
}

func (e *PoolExecutor) SignalEvent(ev Event) {
	if e, ok := ev.(*event); ok {
		e.signal()
	}
}

func (e *PoolExecutor) Wait(h Handle) {
	h.Wait()
}

func (e *PoolExecutor) WaitForEvent(ev Event) {
	ev.Wait()
}

func (e *PoolExecutor) Now() time.Time {
	return time.Now()
}

func (e *PoolExecutor) IsRunThread() bool {
	v := gls.Get(runThreadTag)
	running, ok := v.(bool)
	return ok && running
}

// AssertRunThread logs a warning (it does not panic) when called off the
// dispatcher goroutine.
func AssertRunThread(e Executor) {
	if !e.IsRunThread() {
		log.Warn("expected to run on executor dispatcher goroutine")
	}
}
