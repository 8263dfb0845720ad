package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doriscore/datareplicator/model"
)

func hp(host string) model.HostPort { return model.HostPort{Host: host, Port: 27017} }

func TestChooseNewSyncSourceSkipsBlacklisted(t *testing.T) {
	c := New([]model.HostPort{hp("a"), hp("b"), hp("c")})
	now := time.Now()
	c.now = func() time.Time { return now }

	c.BlacklistSyncSource(hp("a"), now.Add(time.Minute))
	host := c.ChooseNewSyncSource()
	assert.Equal(t, hp("b"), host)
}

func TestChooseNewSyncSourceReturnsZeroWhenAllBlacklisted(t *testing.T) {
	c := New([]model.HostPort{hp("a")})
	now := time.Now()
	c.now = func() time.Time { return now }
	c.BlacklistSyncSource(hp("a"), now.Add(time.Minute))

	assert.True(t, c.ChooseNewSyncSource().IsZero())
}

func TestBlacklistExpires(t *testing.T) {
	c := New([]model.HostPort{hp("a")})
	now := time.Now()
	c.now = func() time.Time { return now }
	c.BlacklistSyncSource(hp("a"), now.Add(-time.Second))

	assert.Equal(t, hp("a"), c.ChooseNewSyncSource())
}

func TestSetFollowerModeReportsChange(t *testing.T) {
	c := New(nil)
	assert.True(t, c.SetFollowerMode(ModeRecovering))
	assert.False(t, c.SetFollowerMode(ModeRecovering))
	assert.Equal(t, ModeRecovering, c.FollowerMode())
}

func TestLastOptimeRoundTrip(t *testing.T) {
	c := New(nil)
	assert.True(t, c.GetMyLastOptime().IsZero())
	c.SetMyLastOptime(model.Timestamp{Seconds: 7})
	assert.Equal(t, model.Timestamp{Seconds: 7}, c.GetMyLastOptime())
}
