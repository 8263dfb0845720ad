// Package reporter implements the Reporter (C7): it informs the
// replication coordinator of the follower's progress, either on a fixed
// interval or immediately when Trigger is called. Grounded in the
// teacher's Checker: a ticking background loop with an explicit
// trigger/refresh cycle (ccr/checker.go), generalized from a
// multi-syncer rebalance check into a single progress report.
package reporter

import (
	"sync"
	"time"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl/coordinator"
	"github.com/doriscore/datareplicator/xmetrics"
)

const defaultInterval = 10 * time.Second

// Reporter periodically (and on demand) pushes the follower's current
// applied position to the coordinator and to metrics.
type Reporter struct {
	coord    coordinator.Coordinator
	name     string
	interval time.Duration
	getOptime func() model.Timestamp

	mu      sync.Mutex
	active  bool
	status  error
	trigger chan struct{}
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// New builds a Reporter that calls getOptime to learn the current
// position each time it reports; name scopes its metrics series.
func New(coord coordinator.Coordinator, name string, getOptime func() model.Timestamp) *Reporter {
	return &Reporter{
		coord:     coord,
		name:      name,
		interval:  defaultInterval,
		getOptime: getOptime,
	}
}

// Start begins the report loop.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.active = true
	r.status = nil
	r.trigger = make(chan struct{}, 1)
	r.stop = make(chan struct{})
	r.stopped = make(chan struct{})
	r.once = sync.Once{}
	stop := r.stop
	stopped := r.stopped
	r.mu.Unlock()

	go r.run(stop, stopped)
}

func (r *Reporter) run(stop, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.report()
		case <-r.trigger:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	ts := r.getOptime()
	r.coord.SetMyLastOptime(ts)
	xmetrics.ReportOptime(r.name, int64(ts.Seconds))
}

// Trigger enqueues an immediate report; it never blocks.
func (r *Reporter) Trigger() {
	r.mu.Lock()
	trigger := r.trigger
	r.mu.Unlock()
	if trigger == nil {
		return
	}
	select {
	case trigger <- struct{}{}:
	default:
	}
}

// Cancel stops the report loop; IsActive is false as soon as Cancel
// returns, and Wait blocks until the loop has exited.
func (r *Reporter) Cancel() {
	r.mu.Lock()
	stop := r.stop
	r.active = false
	r.mu.Unlock()
	if stop != nil {
		r.once.Do(func() { close(stop) })
	}
}

func (r *Reporter) Wait() {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped != nil {
		<-stopped
	}
}

func (r *Reporter) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Reporter) GetStatus() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
