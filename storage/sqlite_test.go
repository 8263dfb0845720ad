package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doriscore/datareplicator/model"
)

func newTestSQLiteDB(t *testing.T) *SQLiteDB {
	store, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	db, ok := store.(*SQLiteDB)
	require.True(t, ok)
	return db
}

func TestSQLiteDBJobLifecycle(t *testing.T) {
	db := newTestSQLiteDB(t)

	exists, err := db.IsJobExist("job1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, db.AddJob("job1", "info1"))
	assert.ErrorIs(t, db.AddJob("job1", "info1"), ErrJobExists)

	exists, err = db.IsJobExist("job1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, db.UpdateJob("job1", "info2"))
	assert.ErrorIs(t, db.UpdateJob("missing", "x"), ErrJobNotExists)

	jobs, err := db.GetAllJobs()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"job1": "info2"}, jobs)
}

func TestSQLiteDBProgressLifecycle(t *testing.T) {
	db := newTestSQLiteDB(t)

	exists, err := db.IsProgressExist("job1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = db.GetProgress("job1")
	assert.ErrorIs(t, err, ErrJobNotExists)

	require.NoError(t, db.UpdateProgress("job1", "p1"))
	require.NoError(t, db.UpdateProgress("job1", "p2"))

	progress, err := db.GetProgress("job1")
	require.NoError(t, err)
	assert.Equal(t, "p2", progress)
}

func TestSQLiteDBDocumentRoundTrip(t *testing.T) {
	db := newTestSQLiteDB(t)
	ctx := context.Background()
	ns := model.Namespace{Database: "d", Collection: "c"}

	require.NoError(t, db.PutCollectionDoc(ctx, ns, model.Document{"_id": "1", "v": "a"}))
	require.NoError(t, db.InsertMissingDoc(ctx, ns, model.Document{"_id": "2", "v": "b"}))

	bodies, err := db.ListNamespaceDocs(ctx, ns)
	require.NoError(t, err)
	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[0], `"_id":"1"`)
	assert.Contains(t, bodies[1], `"_id":"2"`)

	other := model.Namespace{Database: "d", Collection: "other"}
	bodies, err = db.ListNamespaceDocs(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, bodies)

	require.NoError(t, db.DropUserDatabases(ctx))
	bodies, err = db.ListNamespaceDocs(ctx, ns)
	require.NoError(t, err)
	assert.Empty(t, bodies)
}
