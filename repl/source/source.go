// Package source defines the Remote Source contract (C11): the pluggable
// peer a follower tails. The distilled spec treats "the remote primary"
// as an external collaborator; this package supplies the concrete
// interface plus an in-process Fake for tests and local integration runs.
package source

import (
	"context"

	"github.com/doriscore/datareplicator/model"
)

// Source is everything the replicator needs from its sync source: listing
// databases/collections for Initial Sync's clone phase, and a
// find+getMore cursor contract shared by the oplog tail and the
// collection scan (cursor ids live in one namespace across both uses, as
// they would on a real server).
type Source interface {
	ListDatabases(ctx context.Context) ([]string, error)
	ListCollections(ctx context.Context, db string) ([]string, error)

	// FindCollection opens a cursor over ns, returning up to limit
	// documents and a cursor id (0 if already exhausted).
	FindCollection(ctx context.Context, ns model.Namespace, limit int) (docs []model.Document, cursorID int64, err error)

	// FindOplog opens a cursor over the oplog starting at startTS
	// (inclusive), returning up to limit documents and a cursor id.
	FindOplog(ctx context.Context, startTS model.Timestamp, limit int) (docs []model.Document, cursorID int64, err error)

	// GetMore continues any cursor opened by FindCollection or FindOplog.
	GetMore(ctx context.Context, cursorID int64, limit int) (docs []model.Document, nextCursorID int64, err error)

	// FindByID is the missing-document protocol's point query.
	FindByID(ctx context.Context, ns model.Namespace, id interface{}) (doc model.Document, found bool, err error)

	// LatestOplogEntry returns the newest oplog entry, used both to pick
	// BeginTS at the start of Initial Sync and StopTS once cloning ends.
	LatestOplogEntry(ctx context.Context) (model.Document, error)
}
