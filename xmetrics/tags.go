package xmetrics

type IMetricsTag interface {
	Tag() []string
}

type metricsTag struct {
	tags []string
}

// dashboard metrics, aggregated across every replication running in the process
type dashboardMetrics struct {
	metricsTag
}

func DashboardMetrics() *dashboardMetrics {
	return &dashboardMetrics{
		metricsTag: metricsTag{[]string{"dashboard"}},
	}
}

func (d *dashboardMetrics) Tag() []string {
	return d.tags
}

func (d *dashboardMetrics) ReplicationNum() IMetricsTag {
	d.tags = append(d.tags, "replicationNum")
	return d
}

func (d *dashboardMetrics) OplogOpNum() IMetricsTag {
	d.tags = append(d.tags, "oplogOpNum")
	return d
}

// replication metrics, scoped to a single named replication
type replicationMetrics struct {
	metricsTag
	name string
}

func ReplicationMetrics(name string) *replicationMetrics {
	return &replicationMetrics{
		metricsTag: metricsTag{[]string{"replication"}},
		name:       name,
	}
}

func (r *replicationMetrics) Tag() []string {
	r.tags = append(r.tags, r.name)
	return r.tags
}

func (r *replicationMetrics) State() IMetricsTag {
	r.tags = append(r.tags, "state")
	return r
}

func (r *replicationMetrics) LastTimestampApplied() IMetricsTag {
	r.tags = append(r.tags, "lastTimestampApplied")
	return r
}

func (r *replicationMetrics) LastTimestampFetched() IMetricsTag {
	r.tags = append(r.tags, "lastTimestampFetched")
	return r
}

func (r *replicationMetrics) AppliedOpNum() IMetricsTag {
	r.tags = append(r.tags, "appliedOpNum")
	return r
}

func (r *replicationMetrics) OplogBufferBytes() IMetricsTag {
	r.tags = append(r.tags, "oplogBufferBytes")
	return r
}

func (r *replicationMetrics) MissingDocFetches() IMetricsTag {
	r.tags = append(r.tags, "missingDocFetches")
	return r
}

func (r *replicationMetrics) InitialSyncAttempts() IMetricsTag {
	r.tags = append(r.tags, "initialSyncAttempts")
	return r
}

func (r *replicationMetrics) RollbackNum() IMetricsTag {
	r.tags = append(r.tags, "rollbackNum")
	return r
}

// error metrics
type errorMetrics struct {
	metricsTag
}

func ErrorMetrics() *errorMetrics {
	return &errorMetrics{
		metricsTag: metricsTag{[]string{"error"}},
	}
}

func (e *errorMetrics) Tag() []string {
	return e.tags
}

func (e *errorMetrics) Category(categoryName string) IMetricsTag {
	e.tags = append(e.tags, categoryName)
	return e
}
