package source

import (
	"context"
	"sort"
	"sync"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/xerror"
)

type cursorState struct {
	docs []model.Document
	pos  int
}

// Fake is an in-process Source backing tests and local integration runs.
// It holds databases/collections and an oplog entirely in memory; nothing
// about it is concurrency-optimized, only safe.
type Fake struct {
	mu sync.Mutex

	databases   map[string][]string
	collections map[model.Namespace][]model.Document
	oplog       []model.Document

	cursors  map[int64]*cursorState
	cursorID int64

	// NetworkErr, when non-nil, is returned (and then cleared) by the
	// next call to any method, simulating a one-shot transient failure.
	NetworkErr error
}

func NewFake() *Fake {
	return &Fake{
		databases:   make(map[string][]string),
		collections: make(map[model.Namespace][]model.Document),
		cursors:     make(map[int64]*cursorState),
	}
}

// AddDatabase registers db with the given collections, each pre-populated
// with docs (used to seed the Databases Cloner's listDatabases/clone
// path).
func (f *Fake) AddDatabase(db string, collections map[string][]model.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(collections))
	for name, docs := range collections {
		names = append(names, name)
		f.collections[model.Namespace{Database: db, Collection: name}] = docs
	}
	sort.Strings(names)
	f.databases[db] = names
}

// AppendOplog appends docs to the tail of the oplog; callers are
// responsible for keeping ts ascending, matching real oplog behaviour.
func (f *Fake) AppendOplog(docs ...model.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oplog = append(f.oplog, docs...)
}

func (f *Fake) takeNetworkErr() error {
	if f.NetworkErr == nil {
		return nil
	}
	err := f.NetworkErr
	f.NetworkErr = nil
	return err
}

func (f *Fake) ListDatabases(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeNetworkErr(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(f.databases))
	for name := range f.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *Fake) ListCollections(ctx context.Context, db string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeNetworkErr(); err != nil {
		return nil, err
	}
	return append([]string(nil), f.databases[db]...), nil
}

func (f *Fake) openCursor(docs []model.Document, limit int) ([]model.Document, int64, error) {
	if limit <= 0 {
		limit = 1000
	}
	if len(docs) <= limit {
		return docs, 0, nil
	}

	f.cursorID++
	id := f.cursorID
	f.cursors[id] = &cursorState{docs: docs, pos: limit}
	return docs[:limit], id, nil
}

func (f *Fake) FindCollection(ctx context.Context, ns model.Namespace, limit int) ([]model.Document, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeNetworkErr(); err != nil {
		return nil, 0, err
	}
	return f.openCursor(f.collections[ns], limit)
}

func (f *Fake) FindOplog(ctx context.Context, startTS model.Timestamp, limit int) ([]model.Document, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeNetworkErr(); err != nil {
		return nil, 0, err
	}

	start := 0
	for ; start < len(f.oplog); start++ {
		ts, ok := f.oplog[start].Ts()
		if ok && !ts.Before(startTS) {
			break
		}
	}
	return f.openCursor(f.oplog[start:], limit)
}

func (f *Fake) GetMore(ctx context.Context, cursorID int64, limit int) ([]model.Document, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeNetworkErr(); err != nil {
		return nil, 0, err
	}

	cs, ok := f.cursors[cursorID]
	if !ok {
		return nil, 0, xerror.Errorf(xerror.Network, xerror.KindUnspecified, "unknown cursor %d", cursorID)
	}
	if limit <= 0 {
		limit = 1000
	}

	remaining := cs.docs[cs.pos:]
	if len(remaining) <= limit {
		delete(f.cursors, cursorID)
		return remaining, 0, nil
	}

	batch := remaining[:limit]
	cs.pos += limit
	return batch, cursorID, nil
}

func (f *Fake) FindByID(ctx context.Context, ns model.Namespace, id interface{}) (model.Document, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeNetworkErr(); err != nil {
		return nil, false, err
	}

	for _, doc := range f.collections[ns] {
		if docID, ok := doc.ID(); ok && docID == id {
			return doc, true, nil
		}
	}
	return nil, false, nil
}

func (f *Fake) LatestOplogEntry(ctx context.Context) (model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeNetworkErr(); err != nil {
		return nil, err
	}
	if len(f.oplog) == 0 {
		return nil, xerror.Errorf(xerror.Network, xerror.KindUnspecified, "oplog is empty")
	}
	return f.oplog[len(f.oplog)-1], nil
}
