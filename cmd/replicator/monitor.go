package main

import (
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/doriscore/datareplicator/repl"
)

const monitorDuration = time.Minute

// Monitor periodically logs process health and replicator progress, the
// same dump-to-log pattern the teacher's Monitor uses for its job
// manager, generalized from per-job sync-phase counts to one
// replicator's state and oplog position.
type Monitor struct {
	r    *repl.DataReplicator
	stop chan struct{}
}

func NewMonitor(r *repl.DataReplicator) *Monitor {
	return &Monitor{r: r, stop: make(chan struct{})}
}

func (m *Monitor) dump() {
	log.Infof("[GOROUTINE] Total = %v", runtime.NumGoroutine())

	mb := func(b uint64) uint64 { return b / 1024 / 1024 }

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	log.Infof("[MEMORY STATS] Alloc = %v MiB, TotalAlloc = %v MiB, Sys = %v MiB, NumGC = %v",
		mb(stats.Alloc), mb(stats.TotalAlloc), mb(stats.Sys), stats.NumGC)

	log.Infof("[REPLICATOR] state = %s, lastTimestampFetched = %s, lastTimestampApplied = %s",
		m.r.State(), m.r.LastTimestampFetched(), m.r.LastTimestampApplied())
}

func (m *Monitor) Start() {
	ticker := time.NewTicker(monitorDuration)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			log.Info("monitor stopped")
			return
		case <-ticker.C:
			m.dump()
		}
	}
}

func (m *Monitor) Stop() {
	log.Info("monitor stopping")
	close(m.stop)
}
