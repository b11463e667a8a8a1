package same

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaderFields(t *testing.T) {
	parsed, err := ParseHeader("ZCZC-WXR-TOR-039173-039175+0030-2451830-KXYZ/NWS-")
	require.NoError(t, err)
	assert.Equal(t, "WXR", parsed.Originator)
	assert.Equal(t, "TOR", parsed.EventCode)
	assert.Equal(t, []string{"039173", "039175"}, parsed.FIPS)
	assert.Equal(t, 30*time.Minute, parsed.ValidDuration)
	assert.Equal(t, "KXYZ/NWS", parsed.CallSign)
}

func TestParseHeaderRejectsMissingPrefix(t *testing.T) {
	_, err := ParseHeader("NOPE-WXR-TOR-039173+0030-2451830-KXYZ/NWS-")
	assert.Error(t, err)
}

func TestParseHeaderRejectsMissingDurationMarker(t *testing.T) {
	_, err := ParseHeader("ZCZC-WXR-TOR-0391730030-2451830-KXYZ/NWS-")
	assert.Error(t, err)
}

func TestParseValidDurationConvenience(t *testing.T) {
	d, ok := ParseValidDuration("ZCZC-WXR-TOR-039173+0115-2451830-KXYZ/NWS-")
	require.True(t, ok)
	assert.Equal(t, time.Hour+15*time.Minute, d)

	_, ok = ParseValidDuration("garbage")
	assert.False(t, ok)
}
