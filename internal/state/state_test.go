package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUpsertDeduplicatesByRawHeader(t *testing.T) {
	s := NewStore()
	a1 := NewActiveAlert(AlertData{EventCode: "TOR"}, "ZCZC-WXR-TOR-000000+0015-0010000-NWS-", 15*time.Minute)
	snap := s.Upsert(a1)
	require.Len(t, snap, 1)

	a2 := NewActiveAlert(AlertData{EventCode: "TOR"}, a1.RawHeader, 15*time.Minute)
	snap = s.Upsert(a2)
	require.Len(t, snap, 1)
	assert.Equal(t, a2.ReceivedAt, snap[0].ReceivedAt)
}

func TestStoreUpsertDropsExpired(t *testing.T) {
	s := NewStore()
	stale := ActiveAlert{RawHeader: "stale", ExpiresAt: time.Now().Add(-time.Second)}
	s.alerts = []ActiveAlert{stale}

	fresh := NewActiveAlert(AlertData{}, "fresh", time.Minute)
	snap := s.Upsert(fresh)
	require.Len(t, snap, 1)
	assert.Equal(t, "fresh", snap[0].RawHeader)
}

func TestStoreSweepReportsChange(t *testing.T) {
	s := NewStore()
	s.alerts = []ActiveAlert{
		{RawHeader: "expired", ExpiresAt: time.Now().Add(-time.Second)},
		{RawHeader: "live", ExpiresAt: time.Now().Add(time.Hour)},
	}

	snap, changed := s.Sweep()
	assert.True(t, changed)
	require.Len(t, snap, 1)
	assert.Equal(t, "live", snap[0].RawHeader)

	_, changed = s.Sweep()
	assert.False(t, changed)
}
