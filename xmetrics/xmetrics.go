package xmetrics

import (
	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-metrics/prometheus"

	"github.com/doriscore/datareplicator/xerror"
)

func InitGlobal(serviceName string) error {
	sink, err := prometheus.NewPrometheusSink()
	if err != nil {
		return xerror.Wrap(err, xerror.Normal, xerror.KindUnspecified, "init prometheus sink failed")
	}

	if _, err := metrics.NewGlobal(metrics.DefaultConfig(serviceName), sink); err != nil {
		return xerror.Wrap(err, xerror.Normal, xerror.KindUnspecified, "new global metrics failed")
	}

	return nil
}

func AddErrorWithCategory(category xerror.Category) {
	metrics.IncrCounter(ErrorMetrics().Category(category.String()).Tag(), 1)
}

// AddNewReplication records a replication entering the dashboard and seeds
// its state gauge at Uninitialized (0) until the first state transition.
func AddNewReplication(name string) {
	metrics.SetGauge(ReplicationMetrics(name).State().Tag(), 0)

	metrics.IncrCounter(DashboardMetrics().ReplicationNum().Tag(), 1)
}

func SetState(name string, state int) {
	metrics.SetGauge(ReplicationMetrics(name).State().Tag(), float32(state))
}

func FetchedOplogEntry(name string, timestamp int64) {
	metrics.SetGauge(ReplicationMetrics(name).LastTimestampFetched().Tag(), float32(timestamp))
}

// ReportOptime publishes the follower's current last-applied position
// without incrementing any counters — distinct from AppliedOplogEntry,
// which also counts an op as applied. The Reporter calls this on its own
// schedule, independent of how many ops have actually been applied since
// the last report.
func ReportOptime(name string, timestamp int64) {
	metrics.SetGauge(ReplicationMetrics(name).LastTimestampApplied().Tag(), float32(timestamp))
}

func AppliedOplogEntry(name string, timestamp int64) {
	metrics.SetGauge(ReplicationMetrics(name).LastTimestampApplied().Tag(), float32(timestamp))
	metrics.IncrCounter(ReplicationMetrics(name).AppliedOpNum().Tag(), 1)

	metrics.IncrCounter(DashboardMetrics().OplogOpNum().Tag(), 1)
}

func SetOplogBufferBytes(name string, bytes int64) {
	metrics.SetGauge(ReplicationMetrics(name).OplogBufferBytes().Tag(), float32(bytes))
}

func AddMissingDocFetch(name string) {
	metrics.IncrCounter(ReplicationMetrics(name).MissingDocFetches().Tag(), 1)
}

func AddInitialSyncAttempt(name string) {
	metrics.IncrCounter(ReplicationMetrics(name).InitialSyncAttempts().Tag(), 1)
}

func AddRollback(name string) {
	metrics.IncrCounter(ReplicationMetrics(name).RollbackNum().Tag(), 1)
}
