// Package config holds the Data Replicator's recognised options (§6 of
// the expanded spec): the distilled spec's sync-source/retry/blacklist
// knobs plus the ambient logging/metrics/HTTP fields a runnable program
// needs that the distilled spec didn't have to name.
package config

import (
	"sync/atomic"
	"time"

	"github.com/doriscore/datareplicator/model"
)

// Options is held by pointer by repl.DataReplicator; FailInitialSyncWithBadHost
// is mutated concurrently by tests via Load/Store and must not be copied.
type Options struct {
	Name string // scopes this replication's logs and metrics series

	RemoteOplogNamespace model.Namespace
	StartOptime          model.Timestamp
	SyncSource           model.HostPort

	SyncSourceRetryWait    time.Duration
	InitialSyncRetryWait   time.Duration
	MaxInitialSyncAttempts int

	BlacklistSyncSourcePenaltyForOplogStartMissing      time.Duration
	BlacklistSyncSourcePenaltyForNetworkConnectionError time.Duration

	ApplierFn model.ApplierFn

	OplogBufferCapacityBytes int64
	DatabaseCloneConcurrency int

	LogLevel        string
	LogFilename     string
	LogAlsoToStderr bool

	MetricsServiceName string
	HTTPPort           int

	// FailInitialSyncWithBadHost is the fault-injection hook: when true,
	// the next initial-sync attempt synthesises xerror.ErrInvalidSyncSource
	// instead of contacting the coordinator, then resets to false.
	FailInitialSyncWithBadHost atomic.Bool
}

// Default returns an Options with every knob set to a reasonable value;
// callers override individual fields (Name, ApplierFn, SyncSource are
// typically mandatory).
func Default() *Options {
	return &Options{
		SyncSourceRetryWait:      2 * time.Second,
		InitialSyncRetryWait:     5 * time.Second,
		MaxInitialSyncAttempts: 10,
		BlacklistSyncSourcePenaltyForOplogStartMissing:      10 * time.Minute,
		BlacklistSyncSourcePenaltyForNetworkConnectionError: time.Minute,
		OplogBufferCapacityBytes: 256 << 20,
		DatabaseCloneConcurrency: 4,
		LogLevel:                 "info",
		MetricsServiceName:       "datareplicator",
		HTTPPort:                 8080,
	}
}
