package xerror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "normal", Normal.String())
	assert.Equal(t, "network", Network.String())
	assert.Equal(t, "storage", Storage.String())
	assert.Equal(t, "sync", Sync.String())
	assert.Equal(t, "invariant", Invariant.String())
}

func TestErrorf(t *testing.T) {
	err := Errorf(Sync, KindOplogStartMissing, "no overlap at ts=%d", 42)
	assert.NotNil(t, err)

	var xerr *XError
	assert.True(t, errors.As(err, &xerr))
	assert.Equal(t, Sync, xerr.Category())
	assert.Equal(t, KindOplogStartMissing, xerr.Kind())
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := Wrap(cause, Network, KindInvalidSyncSource, "dialing sync source")
	assert.NotNil(t, wrapped)

	var xerr *XError
	assert.True(t, errors.As(wrapped, &xerr))
	assert.Equal(t, Network, xerr.Category())
	assert.Equal(t, KindInvalidSyncSource, xerr.Kind())
}

func TestIsMatchesByKind(t *testing.T) {
	err := Wrap(ErrOplogStartMissing, Sync, KindOplogStartMissing, "during steady state")
	assert.True(t, errors.Is(err, ErrOplogStartMissing))
	assert.False(t, errors.Is(err, ErrInvalidSyncSource))
}

func TestOfAndCategoryOf(t *testing.T) {
	err := Errorf(Storage, KindIllegalOperation, "progress row missing")
	assert.Equal(t, KindIllegalOperation, Of(err))
	assert.Equal(t, Storage, CategoryOf(err))

	plain := errors.New("not an xerror")
	assert.Equal(t, KindUnspecified, Of(plain))
	assert.Equal(t, Normal, CategoryOf(plain))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, Storage, KindUnspecified, "unreachable"))
	assert.Nil(t, Wrapf(nil, Storage, KindUnspecified, "unreachable %d", 1))
}
