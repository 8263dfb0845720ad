package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doriscore/datareplicator/model"
)

func TestFakeListDatabasesAndCollections(t *testing.T) {
	f := NewFake()
	f.AddDatabase("db1", map[string][]model.Document{
		"c1": {{"_id": 1}},
	})
	f.AddDatabase("db2", map[string][]model.Document{
		"c2": {{"_id": 2}},
	})

	dbs, err := f.ListDatabases(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"db1", "db2"}, dbs)

	cols, err := f.ListCollections(context.Background(), "db1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"c1"}, cols)
}

func TestFakeFindOplogStartsAtRequestedTimestamp(t *testing.T) {
	f := NewFake()
	f.AppendOplog(
		model.Document{"ts": model.Timestamp{Seconds: 1}},
		model.Document{"ts": model.Timestamp{Seconds: 2}},
		model.Document{"ts": model.Timestamp{Seconds: 3}},
	)

	docs, cursorID, err := f.FindOplog(context.Background(), model.Timestamp{Seconds: 2}, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), cursorID)
	assert.Len(t, docs, 2)
	ts, _ := docs[0].Ts()
	assert.Equal(t, uint32(2), ts.Seconds)
}

func TestFakeGetMoreContinuesCursor(t *testing.T) {
	f := NewFake()
	f.AppendOplog(
		model.Document{"ts": model.Timestamp{Seconds: 1}},
		model.Document{"ts": model.Timestamp{Seconds: 2}},
		model.Document{"ts": model.Timestamp{Seconds: 3}},
	)

	docs, cursorID, err := f.FindOplog(context.Background(), model.Timestamp{Seconds: 1}, 2)
	assert.NoError(t, err)
	assert.NotZero(t, cursorID)
	assert.Len(t, docs, 2)

	more, next, err := f.GetMore(context.Background(), cursorID, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), next)
	assert.Len(t, more, 1)
}

func TestFakeFindByIDMissing(t *testing.T) {
	f := NewFake()
	f.AddDatabase("d", map[string][]model.Document{"c": {{"_id": 1}}})

	_, found, err := f.FindByID(context.Background(), model.Namespace{Database: "d", Collection: "c"}, 42)
	assert.NoError(t, err)
	assert.False(t, found)

	doc, found, err := f.FindByID(context.Background(), model.Namespace{Database: "d", Collection: "c"}, 1)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, doc["_id"])
}

func TestFakeNetworkErrIsOneShot(t *testing.T) {
	f := NewFake()
	f.NetworkErr = context.DeadlineExceeded

	_, err := f.ListDatabases(context.Background())
	assert.Error(t, err)

	_, err = f.ListDatabases(context.Background())
	assert.NoError(t, err)
}
