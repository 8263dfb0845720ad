package executor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doriscore/datareplicator/xerror"
)

func TestScheduleWorkRunsOnDispatcher(t *testing.T) {
	e := NewPoolExecutor(1)
	e.Start()
	defer e.Shutdown()

	done := make(chan bool, 1)
	h := e.ScheduleWork(func(args CallbackArgs) {
		done <- e.IsRunThread()
	})
	e.Wait(h)

	select {
	case onRunThread := <-done:
		assert.True(t, onRunThread)
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}

func TestScheduleWorkAtRespectsDeadline(t *testing.T) {
	e := NewPoolExecutor(1)
	e.Start()
	defer e.Shutdown()

	start := time.Now()
	ranAt := make(chan time.Time, 1)
	h := e.ScheduleWorkAt(start.Add(50*time.Millisecond), func(args CallbackArgs) {
		ranAt <- time.Now()
	})
	e.Wait(h)

	select {
	case t2 := <-ranAt:
		assert.True(t, t2.Sub(start) >= 40*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}

func TestCancelStillFiresWithCanceledStatus(t *testing.T) {
	e := NewPoolExecutor(1)
	e.Start()
	defer e.Shutdown()

	statusCh := make(chan error, 1)
	h := e.ScheduleWorkAt(time.Now().Add(time.Hour), func(args CallbackArgs) {
		statusCh <- args.Status
	})
	h.Cancel()

	select {
	case status := <-statusCh:
		assert.True(t, errors.Is(status, xerror.ErrCallbackCanceled))
	case <-time.After(time.Second):
		t.Fatal("canceled callback never fired")
	}
}

func TestEventSignalWakesAllWaiters(t *testing.T) {
	e := NewPoolExecutor(1)
	e.Start()
	defer e.Shutdown()

	ev := e.MakeEvent()
	waiters := 3
	woke := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			e.WaitForEvent(ev)
			woke <- struct{}{}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	e.SignalEvent(ev)

	for i := 0; i < waiters; i++ {
		select {
		case <-woke:
		case <-time.After(time.Second):
			t.Fatal("not all waiters woke")
		}
	}
}

func TestRemoteCommandRunsOffDispatcher(t *testing.T) {
	e := NewPoolExecutor(2)
	e.Start()
	defer e.Shutdown()

	onRunThread := make(chan bool, 1)
	h := e.ScheduleRemoteCommand(func(args CallbackArgs) {
		onRunThread <- e.IsRunThread()
	})
	e.Wait(h)

	select {
	case v := <-onRunThread:
		assert.False(t, v)
	case <-time.After(time.Second):
		t.Fatal("remote callback never ran")
	}
}
