// Package storage is the persistence surface the replicator uses for two
// distinct things: tracking named replications across process restarts
// (carried over from the teacher's job/progress tables), and writing the
// destination dataset during Initial Sync and steady-state apply.
package storage

import (
	"context"
	"errors"

	"github.com/doriscore/datareplicator/model"
)

var (
	ErrJobExists    = errors.New("job exists")
	ErrJobNotExists = errors.New("job not exists")
)

//go:generate mockgen -destination mock_storage.go -package storage github.com/doriscore/datareplicator/repl/storage Storage

// Storage is the external collaborator C8 (and the Database Cloner, C4.1)
// write the destination dataset through, plus the job/progress registry
// operators use to track replications across restarts.
type Storage interface {
	// AddJob registers a new named replication; info is an
	// implementation-defined serialised configuration blob.
	AddJob(jobName string, info string) error
	UpdateJob(jobName string, info string) error
	IsJobExist(jobName string) (bool, error)
	GetAllJobs() (map[string]string, error)

	// UpdateProgress persists a serialised snapshot of replicator state
	// (state, LastTimestampFetched/Applied, sync source) for one job.
	UpdateProgress(jobName string, progress string) error
	IsProgressExist(jobName string) (bool, error)
	GetProgress(jobName string) (string, error)

	// DropUserDatabases removes every non-system database from the
	// destination dataset; called by Resync before it reruns Initial Sync.
	DropUserDatabases(ctx context.Context) error

	// PutCollectionDoc writes one document cloned from ns during Initial
	// Sync's Database Cloner phase.
	PutCollectionDoc(ctx context.Context, ns model.Namespace, doc model.Document) error

	// InsertMissingDoc writes a document fetched via the missing-document
	// protocol (an oplog op referencing a document Initial Sync hadn't
	// cloned yet).
	InsertMissingDoc(ctx context.Context, ns model.Namespace, doc model.Document) error

	// ListNamespaceDocs returns the JSON-encoded body of every document
	// stored for ns, for the HTTP status surface's debug endpoint.
	ListNamespaceDocs(ctx context.Context, ns model.Namespace) ([]string, error)
}
