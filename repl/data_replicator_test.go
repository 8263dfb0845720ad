package repl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl/config"
	"github.com/doriscore/datareplicator/repl/coordinator"
	"github.com/doriscore/datareplicator/repl/executor"
	"github.com/doriscore/datareplicator/repl/source"
	"github.com/doriscore/datareplicator/repl/storage"
	"github.com/doriscore/datareplicator/xerror"
)

func lastApplierFn(ops []model.Document) (model.Timestamp, error) {
	last := ops[len(ops)-1]
	ts, _ := last.Ts()
	return ts, nil
}

func newTestExec(t *testing.T) executor.Executor {
	e := executor.NewPoolExecutor(4)
	e.Start()
	t.Cleanup(e.Shutdown)
	return e
}

func testConfig() *config.Options {
	cfg := config.Default()
	cfg.Name = "test"
	cfg.ApplierFn = lastApplierFn
	cfg.DatabaseCloneConcurrency = 2
	cfg.MaxInitialSyncAttempts = 3
	cfg.SyncSourceRetryWait = 2 * time.Millisecond
	cfg.InitialSyncRetryWait = 2 * time.Millisecond
	return cfg
}

func TestStartRequiresUninitialized(t *testing.T) {
	exec := newTestExec(t)
	src := source.NewFake()
	src.AppendOplog(model.Document{"ts": model.Timestamp{Seconds: 1}})
	store := storage.NewMemory()
	coord := coordinator.New([]model.HostPort{{Host: "a", Port: 1}})
	r := New(exec, src, store, coord, testConfig())

	assert.NoError(t, r.Start())
	defer r.Shutdown()

	err := r.Start()
	assert.Error(t, err)
	assert.Equal(t, xerror.KindIllegalOperation, xerror.Of(err))
}

func TestInitialSyncClonesThenCatchesUpToStopTS(t *testing.T) {
	exec := newTestExec(t)
	src := source.NewFake()
	src.AddDatabase("db", map[string][]model.Document{
		"c": {{"_id": 1}, {"_id": 2}},
	})
	src.AppendOplog(model.Document{"ts": model.Timestamp{Seconds: 1}})
	store := storage.NewMemory()
	coord := coordinator.New([]model.HostPort{{Host: "a", Port: 1}})
	r := New(exec, src, store, coord, testConfig())

	ts, err := r.InitialSync()
	assert.NoError(t, err)
	assert.Equal(t, model.Timestamp{Seconds: 1}, ts)
	assert.Equal(t, StateUninitialized, r.State())
	assert.Len(t, store.Docs(model.Namespace{Database: "db", Collection: "c"}), 2)

	assert.NoError(t, r.Start())
	defer r.Shutdown()
	assert.Equal(t, StateSteady, r.State())
}

func TestInitialSyncFailsAfterMaxAttemptsWithNoSyncSource(t *testing.T) {
	exec := newTestExec(t)
	src := source.NewFake()
	src.AppendOplog(model.Document{"ts": model.Timestamp{Seconds: 1}})
	store := storage.NewMemory()
	coord := coordinator.New(nil) // no candidates: acquireSyncSource always fails

	cfg := testConfig()
	cfg.MaxInitialSyncAttempts = 2
	r := New(exec, src, store, coord, cfg)

	_, err := r.InitialSync()
	assert.Error(t, err)
	assert.Equal(t, xerror.KindInitialSyncFailure, xerror.Of(err))
	assert.Equal(t, StateUninitialized, r.State())
}

func TestFaultInjectionForcesInvalidSyncSourceOnce(t *testing.T) {
	exec := newTestExec(t)
	src := source.NewFake()
	src.AddDatabase("db", map[string][]model.Document{"c": {{"_id": 1}}})
	src.AppendOplog(model.Document{"ts": model.Timestamp{Seconds: 1}})
	store := storage.NewMemory()
	coord := coordinator.New([]model.HostPort{{Host: "a", Port: 1}})
	cfg := testConfig()
	r := New(exec, src, store, coord, cfg)

	cfg.FailInitialSyncWithBadHost.Store(true)

	ts, err := r.InitialSync()
	assert.NoError(t, err)
	assert.Equal(t, model.Timestamp{Seconds: 1}, ts)
	assert.False(t, cfg.FailInitialSyncWithBadHost.Load())
}

func TestShutdownLeavesNoSubtaskActive(t *testing.T) {
	exec := newTestExec(t)
	src := source.NewFake()
	src.AppendOplog(model.Document{"ts": model.Timestamp{Seconds: 1}})
	store := storage.NewMemory()
	coord := coordinator.New([]model.HostPort{{Host: "a", Port: 1}})
	r := New(exec, src, store, coord, testConfig())

	assert.NoError(t, r.Start())
	r.Shutdown()

	r.mu.Lock()
	assert.False(t, r.anyHandleActive_inlock())
	r.mu.Unlock()
}

func TestShutdownIsIdempotent(t *testing.T) {
	exec := newTestExec(t)
	src := source.NewFake()
	src.AppendOplog(model.Document{"ts": model.Timestamp{Seconds: 1}})
	store := storage.NewMemory()
	coord := coordinator.New([]model.HostPort{{Host: "a", Port: 1}})
	r := New(exec, src, store, coord, testConfig())

	assert.NoError(t, r.Start())
	r.Shutdown()
	r.Shutdown()
}

func TestPauseStopsSchedulingNewApplierBatches(t *testing.T) {
	exec := newTestExec(t)
	src := source.NewFake()
	src.AppendOplog(model.Document{"ts": model.Timestamp{Seconds: 1}})
	store := storage.NewMemory()
	coord := coordinator.New([]model.HostPort{{Host: "a", Port: 1}})
	coord.SetMyLastOptime(model.Timestamp{Seconds: 1})
	r := New(exec, src, store, coord, testConfig())

	assert.NoError(t, r.Start())
	defer r.Shutdown()

	assert.Eventually(t, func() bool {
		return r.LastTimestampApplied() == (model.Timestamp{Seconds: 1})
	}, time.Second, 5*time.Millisecond)

	r.Pause()
	applied := r.LastTimestampApplied()

	src.AppendOplog(model.Document{"ts": model.Timestamp{Seconds: 2}})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, applied, r.LastTimestampApplied())

	assert.NoError(t, r.Resume(true))
	assert.Eventually(t, func() bool {
		return r.LastTimestampApplied() == (model.Timestamp{Seconds: 2})
	}, time.Second, 5*time.Millisecond)
}

func TestResyncDropsDataAndReclones(t *testing.T) {
	exec := newTestExec(t)
	src := source.NewFake()
	src.AddDatabase("db", map[string][]model.Document{"c": {{"_id": 1}}})
	src.AppendOplog(model.Document{"ts": model.Timestamp{Seconds: 1}})
	store := storage.NewMemory()
	coord := coordinator.New([]model.HostPort{{Host: "a", Port: 1}})
	r := New(exec, src, store, coord, testConfig())

	_, err := r.InitialSync()
	assert.NoError(t, err)
	assert.Equal(t, 0, store.DropCount())

	ts, err := r.Resync()
	assert.NoError(t, err)
	assert.Equal(t, model.Timestamp{Seconds: 1}, ts)
	assert.Equal(t, 1, store.DropCount())
	assert.Len(t, store.Docs(model.Namespace{Database: "db", Collection: "c"}), 1)
}
