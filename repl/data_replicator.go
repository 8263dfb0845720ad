// Package repl implements the Data Replicator (C8): the state machine
// that drives Initial Sync and steady-state oplog tailing on top of the
// executor, fetcher, buffer, applier, cloner, reporter and coordinator
// packages beneath it. It is the only piece of this module that holds
// more than one collaborator's worth of state, and it does so behind a
// single mutex, following the "_inlock" convention: a method whose name
// ends "_inlock" requires mu already held by its caller.
package repl

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl/applier"
	"github.com/doriscore/datareplicator/repl/buffer"
	"github.com/doriscore/datareplicator/repl/cloner"
	"github.com/doriscore/datareplicator/repl/config"
	"github.com/doriscore/datareplicator/repl/coordinator"
	"github.com/doriscore/datareplicator/repl/executor"
	"github.com/doriscore/datareplicator/repl/fetcher"
	"github.com/doriscore/datareplicator/repl/reporter"
	"github.com/doriscore/datareplicator/repl/source"
	"github.com/doriscore/datareplicator/repl/storage"
	"github.com/doriscore/datareplicator/xerror"
	"github.com/doriscore/datareplicator/xmetrics"
)

// State is the Data Replicator's top-level state.
type State int

const (
	StateUninitialized State = iota
	StateInitialSync
	StateSteady
	StateRollback
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialSync:
		return "InitialSync"
	case StateSteady:
		return "Steady"
	case StateRollback:
		return "Rollback"
	default:
		return "Unknown"
	}
}

const (
	defaultOplogFetchLimit       = 500
	maxSyncSourceAcquireAttempts = 5
)

// initialSyncState is the scratch state kept for a single InitialSync
// attempt: its own Databases Cloner, the timestamps that bound the
// attempt, and the latched terminal status. It is discarded (and a fresh
// one built) on every retry.
type initialSyncState struct {
	cloner      *cloner.DatabasesCloner
	completion  executor.Event
	beginTS     model.Timestamp
	stopTS      model.Timestamp
	stopTSKnown bool
	status      error
	signaled    bool
}

// DataReplicator is the C8 state machine. All exported methods are safe
// for concurrent use; internally, every state mutation happens under mu,
// and mu is never held across remote I/O, executor waits, or sleeps.
type DataReplicator struct {
	exec  executor.Executor
	src   source.Source
	store storage.Storage
	coord coordinator.Coordinator
	cfg   *config.Options
	name  string

	mu sync.Mutex

	state State

	// paused reflects an operator-requested Pause/Resume; applierReady
	// additionally gates the applier during the Initial Sync handshake
	// (§4.6.5) independently of any operator pause.
	paused       bool
	applierReady bool

	doShutdown    bool
	shutdownEvent executor.Event

	syncSource model.HostPort

	oplogFetcher *fetcher.OplogFetcher
	buf          *buffer.Buffer
	applier      *applier.BatchApplier
	reporter     *reporter.Reporter
	initSync     *initialSyncState

	lastTimestampFetched model.Timestamp
	lastTimestampApplied model.Timestamp

	pendingRollbackCheck bool
	rollbackProbe        func() bool
}

// New builds a DataReplicator in state Uninitialized; call Start (to
// resume steady-state replication against already-synced data) or
// InitialSync (to (re)populate the destination from scratch).
func New(exec executor.Executor, src source.Source, store storage.Storage, coord coordinator.Coordinator, cfg *config.Options) *DataReplicator {
	return &DataReplicator{
		exec:         exec,
		src:          src,
		store:        store,
		coord:        coord,
		cfg:          cfg,
		name:         cfg.Name,
		buf:          buffer.New(cfg.OplogBufferCapacityBytes),
		state:        StateUninitialized,
		applierReady: true,
	}
}

func (r *DataReplicator) setState_inlock(s State) {
	r.state = s
	xmetrics.SetState(r.name, int(s))
}

// State reports the replicator's current top-level state.
func (r *DataReplicator) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *DataReplicator) LastTimestampApplied() model.Timestamp {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTimestampApplied
}

func (r *DataReplicator) LastTimestampFetched() model.Timestamp {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTimestampFetched
}

// SetRollbackProbe installs the hook changeStateIfNeeded consults after an
// OplogStartMissing error to decide Steady vs. Rollback; a nil probe (the
// default) always answers false.
func (r *DataReplicator) SetRollbackProbe(fn func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollbackProbe = fn
}

// Start transitions Uninitialized -> Steady and begins tailing the oplog
// from the coordinator's (or the configured fallback) optime. It is the
// operator's entry point after a restart against already-synced data.
func (r *DataReplicator) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUninitialized {
		return xerror.Wrap(xerror.ErrIllegalOperation, xerror.Normal, xerror.KindIllegalOperation, "Start requires state Uninitialized")
	}

	r.paused = false
	r.applierReady = true
	r.doShutdown = false
	xmetrics.AddNewReplication(r.name)
	r.setState_inlock(StateSteady)
	r.doNextActions_inlock()
	return nil
}

// InitialSync runs the retry loop in §4.6.4 in the caller's goroutine,
// blocking until the destination dataset is fully cloned and caught up to
// the oplog position observed when cloning finished, or every attempt has
// been exhausted.
func (r *DataReplicator) InitialSync() (model.Timestamp, error) {
	r.mu.Lock()
	if r.state != StateUninitialized {
		r.mu.Unlock()
		return model.Timestamp{}, xerror.Wrap(xerror.ErrAlreadyInitialized, xerror.Normal, xerror.KindAlreadyInitialized, "initial sync already ran or is in progress")
	}
	r.doShutdown = false
	r.setState_inlock(StateInitialSync)
	r.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxInitialSyncAttempts; attempt++ {
		xmetrics.AddInitialSyncAttempt(r.name)

		ts, err := r.runOneInitialSyncAttempt()
		if err == nil {
			return ts, nil
		}
		lastErr = err
		log.Warn("initial sync attempt failed", zap.Int("attempt", attempt), zap.Int("maxAttempts", r.cfg.MaxInitialSyncAttempts), zap.Error(err))

		if attempt < r.cfg.MaxInitialSyncAttempts {
			time.Sleep(r.cfg.InitialSyncRetryWait)
		}
	}

	r.mu.Lock()
	r.setState_inlock(StateUninitialized)
	r.initSync = nil
	r.mu.Unlock()

	return model.Timestamp{}, xerror.Wrapf(xerror.ErrInitialSyncFailure, xerror.Sync, xerror.KindInitialSyncFailure,
		"initial sync failed after %d attempts: %v", r.cfg.MaxInitialSyncAttempts, lastErr)
}

// runOneInitialSyncAttempt implements steps 1-8 of §4.6.4 for a single
// attempt: acquire a sync source, snapshot BeginTS, start the oplog
// fetcher (buffering concurrently with cloning) and the Databases Cloner,
// then block on the attempt's completion event.
func (r *DataReplicator) runOneInitialSyncAttempt() (model.Timestamp, error) {
	if r.cfg.FailInitialSyncWithBadHost.Load() {
		r.cfg.FailInitialSyncWithBadHost.Store(false)
		return model.Timestamp{}, xerror.Wrap(xerror.ErrInvalidSyncSource, xerror.Sync, xerror.KindInvalidSyncSource, "fault injection: bad sync source")
	}

	host := r.acquireSyncSource()
	if host.IsZero() {
		return model.Timestamp{}, xerror.New(xerror.Sync, xerror.KindInvalidSyncSource, "no sync source available")
	}

	st := &initialSyncState{completion: r.exec.MakeEvent()}

	r.mu.Lock()
	r.syncSource = host
	r.applierReady = false
	r.initSync = st
	r.mu.Unlock()

	beginDoc, err := r.src.LatestOplogEntry(context.Background())
	if err != nil {
		r.mu.Lock()
		r.initSync = nil
		r.mu.Unlock()
		return model.Timestamp{}, xerror.Wrap(err, xerror.Network, xerror.KindUnspecified, "fetch begin optime failed")
	}
	beginTS, _ := beginDoc.Ts()
	st.beginTS = beginTS

	r.mu.Lock()
	r.reopenOplogFetcher_inlock(beginTS)
	dbc := cloner.NewDatabasesCloner(r.exec, r.src, r.store, r.cfg.DatabaseCloneConcurrency)
	st.cloner = dbc
	r.mu.Unlock()

	dbc.Start(func(err error) {
		r.onDatabasesClonerDone(st, err)
	})

	r.exec.WaitForEvent(st.completion)

	r.mu.Lock()
	finalErr := st.status
	appliedTS := r.lastTimestampApplied
	if r.initSync == st {
		r.initSync = nil
	}
	r.mu.Unlock()

	if finalErr != nil {
		return model.Timestamp{}, finalErr
	}
	return appliedTS, nil
}

// acquireSyncSource polls the coordinator for a candidate, sleeping
// SyncSourceRetryWait between tries, up to a small fixed number of
// attempts; InitialSync's own retry loop is the outer backstop.
func (r *DataReplicator) acquireSyncSource() model.HostPort {
	for i := 0; i < maxSyncSourceAcquireAttempts; i++ {
		if host := r.coord.ChooseNewSyncSource(); !host.IsZero() {
			return host
		}
		if i < maxSyncSourceAcquireAttempts-1 {
			time.Sleep(r.cfg.SyncSourceRetryWait)
		}
	}
	return model.HostPort{}
}

// onDatabasesClonerDone runs the applier-ready handshake (§4.6.5) once
// cloning succeeds: it fetches the newest remote oplog entry as StopTS and
// only then allows the applier to start draining the buffer.
func (r *DataReplicator) onDatabasesClonerDone(st *initialSyncState, err error) {
	r.mu.Lock()
	if r.initSync != st {
		r.mu.Unlock()
		return
	}
	if err != nil {
		r.latchInitialSyncErr_inlock(err)
		r.doNextActions_inlock()
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.exec.ScheduleRemoteCommand(func(args executor.CallbackArgs) {
		if args.Status != nil {
			r.mu.Lock()
			if r.initSync == st {
				r.latchInitialSyncErr_inlock(args.Status)
				r.doNextActions_inlock()
			}
			r.mu.Unlock()
			return
		}

		stopDoc, ferr := r.src.LatestOplogEntry(context.Background())

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.initSync != st {
			return
		}
		if ferr != nil {
			r.latchInitialSyncErr_inlock(xerror.Wrap(ferr, xerror.Network, xerror.KindUnspecified, "fetch stop optime failed"))
			r.doNextActions_inlock()
			return
		}
		stopTS, _ := stopDoc.Ts()
		st.stopTS = stopTS
		st.stopTSKnown = true
		r.applierReady = true
		r.doNextActions_inlock()
	})
}

func (r *DataReplicator) latchInitialSyncErr_inlock(err error) {
	if r.initSync == nil || r.initSync.status != nil {
		return
	}
	r.initSync.status = err
}

func (r *DataReplicator) finishInitialSync_inlock() {
	st := r.initSync
	if st == nil || st.signaled {
		return
	}
	st.signaled = true
	r.exec.SignalEvent(st.completion)
}

// doNextActions is the single decision point (§4.6.1) every callback
// funnels into.
func (r *DataReplicator) doNextActions_inlock() {
	if r.doShutdown && !r.anyHandleActive_inlock() {
		if r.shutdownEvent != nil {
			r.exec.SignalEvent(r.shutdownEvent)
		}
		return
	}

	switch r.state {
	case StateSteady:
		r.steadyHandler_inlock()
	case StateInitialSync:
		r.initialSyncHandler_inlock()
	case StateRollback:
		// No automatic action: a node in Rollback awaits operator
		// intervention via Resync.
	}

	r.changeStateIfNeeded_inlock()
}

func (r *DataReplicator) anyHandleActive_inlock() bool {
	if r.oplogFetcher != nil && r.oplogFetcher.IsActive() {
		return true
	}
	if r.applier != nil && r.applier.IsActive() {
		return true
	}
	if r.reporter != nil && r.reporter.IsActive() {
		return true
	}
	if r.initSync != nil && r.initSync.cloner != nil && r.initSync.cloner.IsActive() {
		return true
	}
	return false
}

// steadyHandler implements §4.6.2.
func (r *DataReplicator) steadyHandler_inlock() {
	if r.doShutdown || r.paused {
		return
	}

	if r.syncSource.IsZero() {
		host := r.coord.ChooseNewSyncSource()
		if host.IsZero() {
			r.exec.ScheduleWorkAt(r.exec.Now().Add(r.cfg.SyncSourceRetryWait), func(args executor.CallbackArgs) {
				if args.Status != nil {
					return
				}
				r.mu.Lock()
				r.doNextActions_inlock()
				r.mu.Unlock()
			})
			return
		}
		r.syncSource = host
	}

	if r.oplogFetcher == nil || !r.oplogFetcher.IsActive() {
		startTS := r.coord.GetMyLastOptime()
		if startTS.IsZero() {
			startTS = r.cfg.StartOptime
		}
		r.reopenOplogFetcher_inlock(startTS)
	}

	if r.applierReady && (r.applier == nil || !r.applier.IsActive()) && !r.buf.IsEmpty() {
		r.scheduleNextApplierBatch_inlock()
	}

	if r.reporter == nil || (!r.reporter.IsActive() && r.reporter.GetStatus() != nil) {
		r.rebuildReporter_inlock()
	}
}

// initialSyncHandler implements §4.6.3.
func (r *DataReplicator) initialSyncHandler_inlock() {
	st := r.initSync
	if st == nil {
		r.setState_inlock(StateUninitialized)
		return
	}

	if st.cloner != nil && st.cloner.IsActive() {
		return
	}
	if st.status != nil {
		r.finishInitialSync_inlock()
		return
	}
	if st.stopTSKnown && !r.lastTimestampApplied.Before(st.stopTS) {
		r.setState_inlock(StateUninitialized)
		r.finishInitialSync_inlock()
		return
	}

	r.steadyHandler_inlock()
}

func (r *DataReplicator) reopenOplogFetcher_inlock(startTS model.Timestamp) {
	if r.doShutdown {
		return
	}
	of := fetcher.NewOplogFetcher(r.exec, startTS,
		func(ctx context.Context) ([]model.Document, int64, error) {
			return r.src.FindOplog(ctx, startTS, defaultOplogFetchLimit)
		},
		func(ctx context.Context, cursorID int64) ([]model.Document, int64, error) {
			return r.src.GetMore(ctx, cursorID, defaultOplogFetchLimit)
		},
		r.onOplogBatch,
	)
	r.oplogFetcher = of
	if err := of.Schedule(); err != nil {
		log.Warn("oplog fetcher schedule failed", zap.Error(err))
	}
}

// onOplogBatch is the fetcher.Callback for every oplog fetcher this
// replicator ever schedules (§4.6.7).
func (r *DataReplicator) onOplogBatch(result fetcher.BatchResult, next *fetcher.NextAction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if result.Err != nil {
		if errors.Is(result.Err, xerror.ErrCallbackCanceled) {
			r.doNextActions_inlock()
			return
		}

		if xerror.Of(result.Err) == xerror.KindOplogStartMissing {
			r.pendingRollbackCheck = true
			r.coord.BlacklistSyncSource(r.syncSource, r.exec.Now().Add(r.cfg.BlacklistSyncSourcePenaltyForOplogStartMissing))
		} else {
			r.coord.BlacklistSyncSource(r.syncSource, r.exec.Now().Add(r.cfg.BlacklistSyncSourcePenaltyForNetworkConnectionError))
			xmetrics.AddErrorWithCategory(xerror.CategoryOf(result.Err))
		}
		r.syncSource = model.HostPort{}

		if r.initSync != nil {
			r.latchInitialSyncErr_inlock(result.Err)
		}
		r.doNextActions_inlock()
		return
	}

	for _, doc := range result.Docs {
		if err := r.buf.Push(context.Background(), doc); err != nil {
			log.Warn("oplog buffer push canceled", zap.Error(err))
			continue
		}
		if ts, ok := doc.Ts(); ok {
			r.lastTimestampFetched = ts
		} else {
			log.Warn("oplog document missing ts field")
		}
	}
	xmetrics.FetchedOplogEntry(r.name, int64(r.lastTimestampFetched.Seconds))
	xmetrics.SetOplogBufferBytes(r.name, r.buf.Size())

	if *next == fetcher.ActionNone && (r.state == StateSteady || r.state == StateInitialSync) {
		// Cursor exhausted with no error while still tailing: reopen
		// immediately rather than waiting for an unrelated wake-up to
		// notice the tail stopped.
		r.reopenOplogFetcher_inlock(r.lastTimestampFetched)
	}

	r.doNextActions_inlock()
}

func (r *DataReplicator) scheduleNextApplierBatch_inlock() {
	if r.doShutdown {
		return
	}

	var ops []model.Document
	for {
		doc, ok := r.buf.TryPop()
		if !ok {
			break
		}
		ops = append(ops, doc)
	}
	if len(ops) == 0 {
		return
	}

	a := applier.New(r.exec, ops, r.cfg.ApplierFn, r.onApplierDone)
	r.applier = a
	a.Start()
}

// onApplierDone is the applier.CompletionFn shared by steady-state batches
// and initial-sync batches, including missing-document protocol replays.
func (r *DataReplicator) onApplierDone(ts model.Timestamp, err error, ops []model.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		if errors.Is(err, xerror.ErrCallbackCanceled) {
			r.doNextActions_inlock()
			return
		}

		if r.state == StateInitialSync && r.initSync != nil {
			r.handleMissingDocument_inlock(err, ops)
			return
		}

		// Outside Initial Sync a failed batch is fatal: the operator must
		// intervene (retry, resync, or fail over).
		log.Panic("batch apply failed outside initial sync", zap.Error(err))
	}

	if !ts.IsZero() {
		r.lastTimestampApplied = ts
		xmetrics.AppliedOplogEntry(r.name, int64(ts.Seconds))
	}
	r.doNextActions_inlock()
}

// handleMissingDocument implements the protocol in §4.6.6: the first entry
// of the failing batch is assumed to be the one referencing a document
// Initial Sync's clone phase hadn't reached yet.
func (r *DataReplicator) handleMissingDocument_inlock(applyErr error, ops []model.Document) {
	if len(ops) == 0 {
		r.latchInitialSyncErr_inlock(applyErr)
		r.doNextActions_inlock()
		return
	}

	failing := ops[0]
	o2, _ := failing["o2"].(model.Document)
	id, hasID := o2.ID()
	ns, hasNS := failing["ns"].(model.Namespace)
	if !hasID || !hasNS {
		r.latchInitialSyncErr_inlock(xerror.Wrap(applyErr, xerror.Sync, xerror.KindInitialSyncFailure, "missing-document protocol: malformed oplog entry"))
		r.doNextActions_inlock()
		return
	}

	st := r.initSync
	r.exec.ScheduleRemoteCommand(func(args executor.CallbackArgs) {
		if args.Status != nil {
			r.mu.Lock()
			if r.initSync == st {
				r.doNextActions_inlock()
			}
			r.mu.Unlock()
			return
		}

		doc, found, ferr := r.src.FindByID(context.Background(), ns, id)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.initSync != st {
			return
		}
		if ferr != nil {
			r.latchInitialSyncErr_inlock(xerror.Wrap(ferr, xerror.Network, xerror.KindUnspecified, "missing-document query failed"))
			r.doNextActions_inlock()
			return
		}
		if !found {
			r.latchInitialSyncErr_inlock(xerror.New(xerror.Sync, xerror.KindInitialSyncFailure, "missing doc not found"))
			r.doNextActions_inlock()
			return
		}
		if ierr := r.store.InsertMissingDoc(context.Background(), ns, doc); ierr != nil {
			r.latchInitialSyncErr_inlock(xerror.Wrap(ierr, xerror.Storage, xerror.KindInitialSyncFailure, "insert missing doc failed"))
			r.doNextActions_inlock()
			return
		}
		xmetrics.AddMissingDocFetch(r.name)

		a := applier.New(r.exec, ops, r.cfg.ApplierFn, r.onApplierDone)
		r.applier = a
		a.Start()
	})
}

// changeStateIfNeeded implements the resolved Steady->Rollback decision:
// trigger Rollback only when an OplogStartMissing error just occurred in
// Steady state and the rollback probe agrees; otherwise stay in Steady and
// transition the coordinator's follower mode to Recovering.
func (r *DataReplicator) changeStateIfNeeded_inlock() {
	if !r.pendingRollbackCheck {
		return
	}
	r.pendingRollbackCheck = false

	if r.state != StateSteady {
		return
	}

	if r.rollbackProbe != nil && r.rollbackProbe() {
		r.setState_inlock(StateRollback)
		xmetrics.AddRollback(r.name)
		return
	}

	r.coord.SetFollowerMode(coordinator.ModeRecovering)
}

func (r *DataReplicator) rebuildReporter_inlock() {
	rep := reporter.New(r.coord, r.name, func() model.Timestamp {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.lastTimestampApplied
	})
	r.reporter = rep
	rep.Start()
}

// SlavesHaveProgressed triggers an immediate report if a reporter exists.
func (r *DataReplicator) SlavesHaveProgressed() {
	r.mu.Lock()
	rep := r.reporter
	r.mu.Unlock()
	if rep != nil {
		rep.Trigger()
	}
}

// Pause synchronously stops the applier: no new batch is scheduled once it
// returns, and any batch already running is allowed to finish first.
func (r *DataReplicator) Pause() {
	r.mu.Lock()
	r.paused = true
	a := r.applier
	r.mu.Unlock()

	if a != nil {
		a.Wait()
	}
}

// Resume unpauses the fetcher and applier; if wait is true, it blocks
// until doNextActions has run at least once more.
func (r *DataReplicator) Resume(wait bool) error {
	r.mu.Lock()
	if !r.paused {
		r.mu.Unlock()
		return nil
	}
	r.paused = false
	done := r.exec.MakeEvent()
	r.exec.ScheduleWork(func(args executor.CallbackArgs) {
		r.mu.Lock()
		r.doNextActions_inlock()
		r.mu.Unlock()
		r.exec.SignalEvent(done)
	})
	r.mu.Unlock()

	if wait {
		r.exec.WaitForEvent(done)
	}
	return nil
}

// FlushAndPause drains the buffer through the applier, then pauses, and
// returns the resulting LastTimestampApplied.
func (r *DataReplicator) FlushAndPause() model.Timestamp {
	for {
		r.mu.Lock()
		if r.buf.IsEmpty() && (r.applier == nil || !r.applier.IsActive()) {
			r.paused = true
			ts := r.lastTimestampApplied
			r.mu.Unlock()
			return ts
		}
		if r.applier == nil || !r.applier.IsActive() {
			r.scheduleNextApplierBatch_inlock()
		}
		a := r.applier
		r.mu.Unlock()

		if a == nil {
			r.mu.Lock()
			r.paused = true
			ts := r.lastTimestampApplied
			r.mu.Unlock()
			return ts
		}
		a.Wait()
	}
}

// Shutdown cancels every subtask and blocks until none remain active
// (checked as a postcondition by callers/tests); it is idempotent.
func (r *DataReplicator) Shutdown() {
	r.mu.Lock()
	if r.doShutdown {
		ev := r.shutdownEvent
		r.mu.Unlock()
		if ev != nil {
			r.exec.WaitForEvent(ev)
		}
		return
	}
	r.doShutdown = true
	ev := r.exec.MakeEvent()
	r.shutdownEvent = ev

	of, ap, rep := r.oplogFetcher, r.applier, r.reporter
	var dc *cloner.DatabasesCloner
	if r.initSync != nil {
		dc = r.initSync.cloner
	}
	r.mu.Unlock()

	if of != nil {
		of.Cancel()
	}
	if ap != nil {
		ap.Cancel()
	}
	if rep != nil {
		rep.Cancel()
	}
	if dc != nil {
		dc.Cancel()
	}

	if of != nil {
		of.Wait()
	}
	if ap != nil {
		ap.Wait()
	}
	if rep != nil {
		rep.Wait()
	}
	if dc != nil {
		dc.Wait()
	}

	r.mu.Lock()
	r.doNextActions_inlock()
	r.mu.Unlock()

	r.exec.WaitForEvent(ev)
}

// quiesceForResync cancels and waits for every subtask without engaging
// the permanent Shutdown latch, so a subsequent InitialSync can proceed.
func (r *DataReplicator) quiesceForResync() {
	r.mu.Lock()
	of, ap, rep := r.oplogFetcher, r.applier, r.reporter
	var dc *cloner.DatabasesCloner
	if r.initSync != nil {
		dc = r.initSync.cloner
	}
	r.paused = true
	r.mu.Unlock()

	if of != nil {
		of.Cancel()
		of.Wait()
	}
	if ap != nil {
		ap.Cancel()
		ap.Wait()
	}
	if rep != nil {
		rep.Cancel()
		rep.Wait()
	}
	if dc != nil {
		dc.Cancel()
		dc.Wait()
	}
}

// Resync drops local user data and reruns Initial Sync from scratch.
// Decision (open question): on success, LastTimestampApplied/Fetched are
// reset to the returned timestamp and the buffer is cleared, so no stray
// state from before the resync survives into Steady.
func (r *DataReplicator) Resync() (model.Timestamp, error) {
	r.quiesceForResync()

	if err := r.store.DropUserDatabases(context.Background()); err != nil {
		return model.Timestamp{}, xerror.Wrap(err, xerror.Storage, xerror.KindUnspecified, "resync: drop user databases failed")
	}

	r.mu.Lock()
	r.setState_inlock(StateUninitialized)
	r.oplogFetcher = nil
	r.applier = nil
	r.reporter = nil
	r.initSync = nil
	r.buf.Clear()
	r.syncSource = model.HostPort{}
	r.paused = false
	r.doShutdown = false
	r.mu.Unlock()

	ts, err := r.InitialSync()
	if err != nil {
		return model.Timestamp{}, err
	}

	r.mu.Lock()
	r.lastTimestampApplied = ts
	r.lastTimestampFetched = ts
	r.buf.Clear()
	r.mu.Unlock()

	return ts, nil
}
