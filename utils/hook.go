package utils

import (
	"github.com/sirupsen/logrus"
)

// ReplicationHook copies the goroutine-local "replication" tag (set via
// TagReplication) into every log entry emitted from that goroutine, so
// concurrent replications interleave their log lines without losing
// attribution.
type ReplicationHook struct {
	Field  string
	levels []logrus.Level
}

func (h *ReplicationHook) Levels() []logrus.Level {
	return h.levels
}

func (h *ReplicationHook) Fire(entry *logrus.Entry) error {
	if name := GetTag(h.Field); name != nil {
		entry.Data[h.Field] = name
	}
	return nil
}

func NewReplicationHook(levels ...logrus.Level) *ReplicationHook {
	hook := &ReplicationHook{
		Field:  "replication",
		levels: levels,
	}
	if len(hook.levels) == 0 {
		hook.levels = logrus.AllLevels
	}
	return hook
}
