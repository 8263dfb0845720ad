package service

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl"
	"github.com/doriscore/datareplicator/repl/config"
	"github.com/doriscore/datareplicator/repl/coordinator"
	"github.com/doriscore/datareplicator/repl/executor"
	"github.com/doriscore/datareplicator/repl/source"
	"github.com/doriscore/datareplicator/repl/storage"
)

func testReplicator(t *testing.T) *repl.DataReplicator {
	exec := executor.NewPoolExecutor(2)
	exec.Start()
	t.Cleanup(exec.Shutdown)

	src := source.NewFake()
	store := storage.NewMemory()
	coord := coordinator.New([]model.HostPort{{Host: "a", Port: 1}})

	cfg := config.Default()
	cfg.Name = "test"
	cfg.ApplierFn = func(ops []model.Document) (model.Timestamp, error) {
		last := ops[len(ops)-1]
		ts, _ := last.Ts()
		return ts, nil
	}
	cfg.SyncSourceRetryWait = 2 * time.Millisecond
	cfg.InitialSyncRetryWait = 2 * time.Millisecond

	r := repl.New(exec, src, store, coord, cfg)
	t.Cleanup(r.Shutdown)
	return r
}

func newTestService(t *testing.T) *HttpService {
	r := testReplicator(t)
	store := storage.NewMemory()
	s := NewHttpServer("127.0.0.1", 0, store, r, "test")
	s.RegisterHandlers()
	return s
}

func TestStatusHandlerReportsState(t *testing.T) {
	s := newTestService(t)

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	s.statusHandler(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"test"`)
}

func TestRegisterAndListJobs(t *testing.T) {
	s := newTestService(t)

	require.NoError(t, s.store.AddJob("job1", "info1"))

	req := httptest.NewRequest("GET", "/jobs", nil)
	rec := httptest.NewRecorder()
	s.jobsHandler(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "job1")
}

func TestDocsHandlerRequiresQueryParams(t *testing.T) {
	s := newTestService(t)

	req := httptest.NewRequest("GET", "/docs", nil)
	rec := httptest.NewRecorder()
	s.docsHandler(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestPauseResumeHandlers(t *testing.T) {
	s := newTestService(t)

	rec := httptest.NewRecorder()
	s.pauseHandler(rec, httptest.NewRequest("POST", "/pause", nil))
	assert.Equal(t, 200, rec.Code)

	rec = httptest.NewRecorder()
	s.resumeHandler(rec, httptest.NewRequest("POST", "/resume", nil))
	assert.Equal(t, 200, rec.Code)
}
