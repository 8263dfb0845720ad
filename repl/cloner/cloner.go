// Package cloner implements the Databases Cloner (C4) and its
// per-database worker, the Database Cloner (C4.1). The distilled spec
// treats the per-database/per-collection cloner as an external
// collaborator referenced only by contract; this package supplies a
// concrete implementation grounded in the teacher's per-tablet fan-out
// (ccr/ingest_binlog_job.go): a bounded worker pool per database, with
// first-failure-wins status aggregation at both the collection and
// database level.
package cloner

import (
	"context"
	"sync"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl/executor"
	"github.com/doriscore/datareplicator/repl/fetcher"
	"github.com/doriscore/datareplicator/repl/source"
	"github.com/doriscore/datareplicator/repl/storage"
	"github.com/doriscore/datareplicator/xerror"
)

// FinishFn is invoked exactly once when a cloner (database-level or
// top-level) has no more work in flight.
type FinishFn func(err error)

const defaultBatchLimit = 500

// DatabaseCloner clones every collection of one remote database,
// concurrently, bounded by concurrency workers.
type DatabaseCloner struct {
	exec        executor.Executor
	src         source.Source
	store       storage.Storage
	db          string
	concurrency int
	batchLimit  int

	mu       sync.Mutex
	active   bool
	canceled bool
	err      error
	fetchers map[string]*fetcher.QueryFetcher
	done     chan struct{}
	once     sync.Once
}

func NewDatabaseCloner(exec executor.Executor, src source.Source, store storage.Storage, db string, concurrency int) *DatabaseCloner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DatabaseCloner{
		exec:        exec,
		src:         src,
		store:       store,
		db:          db,
		concurrency: concurrency,
		batchLimit:  defaultBatchLimit,
		fetchers:    make(map[string]*fetcher.QueryFetcher),
		done:        make(chan struct{}),
	}
}

// Start begins cloning asynchronously; finishFn is invoked exactly once
// when every collection has terminated (whether OK, failed, or
// canceled).
func (dc *DatabaseCloner) Start(finishFn FinishFn) {
	dc.mu.Lock()
	dc.active = true
	dc.mu.Unlock()

	go dc.run(finishFn)
}

func (dc *DatabaseCloner) run(finishFn FinishFn) {
	cols, err := dc.src.ListCollections(context.Background(), dc.db)
	if err != nil {
		dc.finish(err, finishFn)
		return
	}
	if len(cols) == 0 {
		dc.finish(nil, finishFn)
		return
	}

	sem := make(chan struct{}, dc.concurrency)
	var wg sync.WaitGroup
	for _, col := range cols {
		col := col
		if dc.isCanceled() {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if dc.isCanceled() {
				dc.latchErr(xerror.ErrCallbackCanceled)
				return
			}
			if err := dc.cloneCollection(col); err != nil {
				dc.latchErr(err)
			}
		}()
	}
	wg.Wait()

	dc.mu.Lock()
	err = dc.err
	dc.mu.Unlock()
	dc.finish(err, finishFn)
}

func (dc *DatabaseCloner) cloneCollection(col string) error {
	ns := model.Namespace{Database: dc.db, Collection: col}
	result := make(chan error, 1)

	qf := fetcher.NewQueryFetcher(dc.exec,
		func(ctx context.Context) ([]model.Document, int64, error) {
			return dc.src.FindCollection(ctx, ns, dc.batchLimit)
		},
		func(ctx context.Context, cursorID int64) ([]model.Document, int64, error) {
			return dc.src.GetMore(ctx, cursorID, dc.batchLimit)
		},
		func(batch fetcher.BatchResult, next *fetcher.NextAction) {
			if batch.Err != nil {
				select {
				case result <- batch.Err:
				default:
				}
				return
			}
			for _, doc := range batch.Docs {
				if err := dc.store.PutCollectionDoc(context.Background(), ns, doc); err != nil {
					*next = fetcher.ActionNone
					select {
					case result <- err:
					default:
					}
					return
				}
			}
			if *next == fetcher.ActionNone {
				select {
				case result <- nil:
				default:
				}
			}
		},
	)

	dc.mu.Lock()
	dc.fetchers[col] = qf
	dc.mu.Unlock()

	if err := qf.Schedule(); err != nil {
		return err
	}
	err := <-result
	qf.Wait()
	return err
}

func (dc *DatabaseCloner) latchErr(err error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.err == nil {
		dc.err = err
	}
}

func (dc *DatabaseCloner) isCanceled() bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.canceled
}

func (dc *DatabaseCloner) finish(err error, finishFn FinishFn) {
	dc.once.Do(func() {
		dc.mu.Lock()
		dc.active = false
		dc.mu.Unlock()
		close(dc.done)
		if finishFn != nil {
			finishFn(err)
		}
	})
}

// Cancel marks the cloner inactive and cancels every in-flight collection
// fetcher; those still deliver CallbackCanceled to their own completion,
// which latches as this cloner's status if nothing failed first.
func (dc *DatabaseCloner) Cancel() {
	dc.mu.Lock()
	dc.canceled = true
	dc.active = false
	fetchers := make([]*fetcher.QueryFetcher, 0, len(dc.fetchers))
	for _, qf := range dc.fetchers {
		fetchers = append(fetchers, qf)
	}
	dc.mu.Unlock()

	for _, qf := range fetchers {
		qf.Cancel()
	}
}

func (dc *DatabaseCloner) Wait() { <-dc.done }

func (dc *DatabaseCloner) IsActive() bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.active
}

// DatabasesCloner lists every remote database and fans out one
// DatabaseCloner per database, aggregating completion with
// first-failure-wins semantics (C4).
type DatabasesCloner struct {
	exec             executor.Executor
	src              source.Source
	store            storage.Storage
	concurrencyPerDB int

	mu       sync.Mutex
	active   bool
	canceled bool
	err      error
	pending  int
	children map[string]*DatabaseCloner
	done     chan struct{}
	once     sync.Once
}

func NewDatabasesCloner(exec executor.Executor, src source.Source, store storage.Storage, concurrencyPerDB int) *DatabasesCloner {
	return &DatabasesCloner{
		exec:             exec,
		src:              src,
		store:            store,
		concurrencyPerDB: concurrencyPerDB,
		children:         make(map[string]*DatabaseCloner),
		done:             make(chan struct{}),
	}
}

// Start kicks off listDatabases and, on success, one DatabaseCloner per
// database; finishFn fires exactly once when every child has terminated.
func (c *DatabasesCloner) Start(finishFn FinishFn) {
	c.mu.Lock()
	c.active = true
	c.mu.Unlock()

	go func() {
		dbs, err := c.src.ListDatabases(context.Background())
		if err != nil {
			c.finish(err, finishFn)
			return
		}
		if len(dbs) == 0 {
			c.finish(nil, finishFn)
			return
		}

		c.mu.Lock()
		c.pending = len(dbs)
		canceled := c.canceled
		c.mu.Unlock()
		if canceled {
			c.finish(xerror.ErrCallbackCanceled, finishFn)
			return
		}

		for _, db := range dbs {
			db := db
			child := NewDatabaseCloner(c.exec, c.src, c.store, db, c.concurrencyPerDB)
			c.mu.Lock()
			c.children[db] = child
			c.mu.Unlock()
			child.Start(func(err error) {
				c.onChildDone(err, finishFn)
			})
		}
	}()
}

func (c *DatabasesCloner) onChildDone(err error, finishFn FinishFn) {
	c.mu.Lock()
	if err != nil && c.err == nil {
		c.err = err
	}
	c.pending--
	pending := c.pending
	final := c.err
	c.mu.Unlock()

	if pending == 0 {
		c.finish(final, finishFn)
	}
}

func (c *DatabasesCloner) finish(err error, finishFn FinishFn) {
	c.once.Do(func() {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
		close(c.done)
		if finishFn != nil {
			finishFn(err)
		}
	})
}

// Cancel marks the cloner inactive and cancels every in-flight child.
func (c *DatabasesCloner) Cancel() {
	c.mu.Lock()
	c.canceled = true
	c.active = false
	children := make([]*DatabaseCloner, 0, len(c.children))
	for _, child := range c.children {
		children = append(children, child)
	}
	c.mu.Unlock()

	for _, child := range children {
		child.Cancel()
	}
}

func (c *DatabasesCloner) Wait() { <-c.done }

func (c *DatabasesCloner) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
