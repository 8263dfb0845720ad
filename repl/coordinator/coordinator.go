// Package coordinator implements the Replication Coordinator contract
// (C10): sync-source selection, blacklisting, and the follower's last
// applied optime, all as seen by the Data Replicator state machine.
package coordinator

import (
	"sync"
	"time"

	"github.com/doriscore/datareplicator/model"
)

// FollowerMode mirrors the handful of modes the replicator cares about;
// the real state space (RECOVERING, SECONDARY, ROLLBACK, ...) is a much
// larger enum on a real replica set, but the state machine here only ever
// sets Recovering, so that is all this stands in for.
type FollowerMode int

const (
	ModeSecondary FollowerMode = iota
	ModeRecovering
	ModeRollback
)

func (m FollowerMode) String() string {
	switch m {
	case ModeSecondary:
		return "SECONDARY"
	case ModeRecovering:
		return "RECOVERING"
	case ModeRollback:
		return "ROLLBACK"
	default:
		return "UNKNOWN"
	}
}

// Coordinator is the contract the Data Replicator depends on; calls are
// idempotent from the replicator's point of view.
type Coordinator interface {
	ChooseNewSyncSource() model.HostPort
	BlacklistSyncSource(host model.HostPort, until time.Time)
	GetMyLastOptime() model.Timestamp
	SetMyLastOptime(ts model.Timestamp)
	SetFollowerMode(mode FollowerMode) bool
}

// InMemory is a process-local Coordinator: a fixed candidate list with a
// blacklist deadline per host, round-robin selection among the
// not-currently-blacklisted candidates.
type InMemory struct {
	mu sync.Mutex

	candidates []model.HostPort
	nextIdx    int
	blacklist  map[model.HostPort]time.Time

	lastOptime model.Timestamp
	mode       FollowerMode

	now func() time.Time
}

func New(candidates []model.HostPort) *InMemory {
	return &InMemory{
		candidates: candidates,
		blacklist:  make(map[model.HostPort]time.Time),
		now:        time.Now,
	}
}

// SetCandidates replaces the candidate pool (e.g. after discovering new
// replica set members); it does not clear the blacklist.
func (c *InMemory) SetCandidates(candidates []model.HostPort) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.candidates = candidates
	c.nextIdx = 0
}

// ChooseNewSyncSource returns the next non-blacklisted candidate in
// round-robin order, or the zero HostPort if every candidate is currently
// blacklisted (or there are none).
func (c *InMemory) ChooseNewSyncSource() model.HostPort {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.candidates) == 0 {
		return model.HostPort{}
	}

	now := c.now()
	for i := 0; i < len(c.candidates); i++ {
		idx := (c.nextIdx + i) % len(c.candidates)
		host := c.candidates[idx]
		if until, blacklisted := c.blacklist[host]; blacklisted && now.Before(until) {
			continue
		}
		c.nextIdx = idx + 1
		return host
	}
	return model.HostPort{}
}

func (c *InMemory) BlacklistSyncSource(host model.HostPort, until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blacklist[host] = until
}

func (c *InMemory) GetMyLastOptime() model.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOptime
}

func (c *InMemory) SetMyLastOptime(ts model.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastOptime = ts
}

// SetFollowerMode sets mode and reports whether it actually changed.
func (c *InMemory) SetFollowerMode(mode FollowerMode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == mode {
		return false
	}
	c.mode = mode
	return true
}

func (c *InMemory) FollowerMode() FollowerMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}
