package same

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteFramerRoundTrip(t *testing.T) {
	f := newByteFramer()
	// Idle high, start bit 0, data 'A' = 0x41 = 01000001 LSB-first, stop bit 1.
	bits := []byte{0, 1, 0, 0, 0, 0, 0, 1, 0, 1}
	var got byte
	var ok bool
	for _, b := range bits {
		got, ok = f.pushBit(b)
	}
	require.True(t, ok)
	assert.Equal(t, byte('A'), got)
}

func TestFindHeaderEnd(t *testing.T) {
	header := "ZCZC-WXR-TOR-037183+0030-1241700-KEAX/NWS-"
	end := findHeaderEnd([]byte(header))
	require.Greater(t, end, 0)
	assert.Equal(t, header, header[:end])
}

func TestReceiverDeduplicatesRepeatedHeader(t *testing.T) {
	r := NewReceiver(48000)
	header := "ZCZC-WXR-TOR-037183+0030-1241700-KEAX/NWS-"

	first := r.shouldEmit(header)
	second := r.shouldEmit(header)
	assert.True(t, first)
	assert.False(t, second)
}
