package recorder

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAFSKSamplesNonEmpty(t *testing.T) {
	samples := GenerateAFSKSamples("ZCZC-WXR-TOR-037183+0030-1241700-KEAX/NWS-", SampleRate, HeaderAmplitude)
	assert.NotEmpty(t, samples)
	for _, s := range samples {
		assert.LessOrEqual(t, s, float32(HeaderAmplitude+0.01))
		assert.GreaterOrEqual(t, s, float32(-HeaderAmplitude-0.01))
	}
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "stream_one", SanitizeLabel("stream one"))
	assert.Equal(t, "https___example_com_live", SanitizeLabel("https://example.com/live"))
	assert.Equal(t, "UNKNOWN", SanitizeLabel("???"))
	assert.Equal(t, "__W", SanitizeLabel("??W"))
}

func TestNextAvailablePathSanitizesEventCode(t *testing.T) {
	dir := t.TempDir()
	path, err := NextAvailablePath(dir, "??W", "2026-07-31_12-00-00", "relay-one")
	assert.NoError(t, err)
	assert.Equal(t, "EAS_Recording___W_2026-07-31_12-00-00_relay-one.wav", filepath.Base(path))
}
