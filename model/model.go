// Package model holds the data types shared across the replicator: the
// replica-set state machine (repl), its storage backend (repl/storage),
// its remote peer contract (repl/source), and its coordinator
// (repl/coordinator) all exchange values of these types without any of
// them depending on one another.
package model

import (
	"fmt"
)

// Timestamp is the opaque, monotonically ordered position used throughout
// the oplog: a wall-clock seconds component plus a per-second counter,
// mirroring the source system's Timestamp(seconds, counter).
type Timestamp struct {
	Seconds uint32
	Counter uint32
}

// Compare returns -1, 0, or 1 as t is before, equal to, or after other.
func (t Timestamp) Compare(other Timestamp) int {
	switch {
	case t.Seconds != other.Seconds:
		if t.Seconds < other.Seconds {
			return -1
		}
		return 1
	case t.Counter != other.Counter:
		if t.Counter < other.Counter {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func (t Timestamp) Before(other Timestamp) bool {
	return t.Compare(other) < 0
}

func (t Timestamp) IsZero() bool {
	return t.Seconds == 0 && t.Counter == 0
}

func (t Timestamp) String() string {
	return fmt.Sprintf("Timestamp(%d, %d)", t.Seconds, t.Counter)
}

// Document stands in for the out-of-scope BSON model: a JSON-marshalable
// map; key order is not preserved. Oplog documents carry a required "ts" field of
// type Timestamp; this is a placeholder shape, not a wire-format claim.
type Document map[string]interface{}

// Ts extracts the document's "ts" field, if present and of the right type.
func (d Document) Ts() (Timestamp, bool) {
	v, ok := d["ts"]
	if !ok {
		return Timestamp{}, false
	}
	ts, ok := v.(Timestamp)
	return ts, ok
}

// ID extracts the document's "_id" field, used when fetching a single
// missing document by id (see the o2._id protocol in
// repl.DataReplicator.handleMissingDocument_inlock).
func (d Document) ID() (interface{}, bool) {
	id, ok := d["_id"]
	return id, ok
}

// Namespace identifies a database and collection pair.
type Namespace struct {
	Database   string
	Collection string
}

func (n Namespace) String() string {
	return fmt.Sprintf("%s.%s", n.Database, n.Collection)
}

func (n Namespace) IsZero() bool {
	return n.Database == "" && n.Collection == ""
}

// HostPort identifies a remote sync source; the zero value means
// "unselected".
type HostPort struct {
	Host string
	Port int
}

func (hp HostPort) String() string {
	return fmt.Sprintf("%s:%d", hp.Host, hp.Port)
}

func (hp HostPort) IsZero() bool {
	return hp.Host == "" && hp.Port == 0
}

// ApplierFn applies a batch of oplog operations and returns the timestamp
// of the last operation applied. It is pure with respect to the
// replicator's own state: it may only touch the destination dataset.
type ApplierFn func(ops []Document) (Timestamp, error)
