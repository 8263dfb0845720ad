package utils

import (
	"github.com/modern-go/gls"
)

// TagReplication stamps the calling goroutine with a replication name so
// every log line it emits (through ReplicationHook) carries that name,
// regardless of how many replications are running concurrently.
func TagReplication(name string) {
	gls.ResetGls(gls.GoID(), map[interface{}]interface{}{})
	gls.Set("replication", name)
}

// GetTag returns the goroutine-local value set for key, or nil if this
// goroutine never called TagReplication (or an equivalent gls.Set).
func GetTag(key string) interface{} {
	return gls.Get(key)
}
