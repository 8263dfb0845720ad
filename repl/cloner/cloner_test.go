package cloner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/doriscore/datareplicator/model"
	"github.com/doriscore/datareplicator/repl/executor"
	"github.com/doriscore/datareplicator/repl/source"
	"github.com/doriscore/datareplicator/repl/storage"
)

func newExec(t *testing.T) executor.Executor {
	e := executor.NewPoolExecutor(4)
	e.Start()
	t.Cleanup(e.Shutdown)
	return e
}

func TestDatabasesClonerClonesEveryDatabaseAndCollection(t *testing.T) {
	e := newExec(t)
	src := source.NewFake()
	src.AddDatabase("db1", map[string][]model.Document{
		"c1": {{"_id": 1}, {"_id": 2}},
	})
	src.AddDatabase("db2", map[string][]model.Document{
		"c2": {{"_id": 3}},
	})
	store := storage.NewMemory()

	dc := NewDatabasesCloner(e, src, store, 2)
	done := make(chan error, 1)
	dc.Start(func(err error) { done <- err })

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("databases cloner never finished")
	}
	dc.Wait()

	assert.Len(t, store.Docs(model.Namespace{Database: "db1", Collection: "c1"}), 2)
	assert.Len(t, store.Docs(model.Namespace{Database: "db2", Collection: "c2"}), 1)
}

func TestDatabasesClonerLatchesFirstFailure(t *testing.T) {
	e := newExec(t)
	src := source.NewFake()
	src.AddDatabase("db1", map[string][]model.Document{"c1": {{"_id": 1}}})
	store := storage.NewMemory()

	dc := NewDatabasesCloner(e, src, store, 1)
	src.NetworkErr = assert.AnError // fails ListDatabases, the cloner's first call

	done := make(chan error, 1)
	dc.Start(func(err error) { done <- err })

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("databases cloner never finished")
	}
}

func TestDatabasesClonerLatchesStorageWriteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := newExec(t)
	src := source.NewFake()
	src.AddDatabase("db1", map[string][]model.Document{"c1": {{"_id": 1}}})

	store := storage.NewMockStorage(ctrl)
	store.EXPECT().PutCollectionDoc(gomock.Any(), gomock.Any(), gomock.Any()).Return(assert.AnError)

	dc := NewDatabasesCloner(e, src, store, 1)
	done := make(chan error, 1)
	dc.Start(func(err error) { done <- err })

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("databases cloner never finished")
	}
}

func TestDatabasesClonerNoDatabasesFinishesOK(t *testing.T) {
	e := newExec(t)
	src := source.NewFake()
	store := storage.NewMemory()

	dc := NewDatabasesCloner(e, src, store, 1)
	done := make(chan error, 1)
	dc.Start(func(err error) { done <- err })

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("databases cloner never finished")
	}
}
