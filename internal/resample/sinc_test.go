package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSincPassthroughKeepsRoughSampleCount(t *testing.T) {
	r := NewSinc(48000, 48000)
	in := make([]float32, 4096)
	for i := range in {
		in[i] = 0.1
	}
	out := r.Process(in)
	assert.InDelta(t, len(in), len(out), float64(2*sincHalfLength))
}

func TestSincUpsampleProducesMoreSamples(t *testing.T) {
	r := NewSinc(24000, 48000)
	in := make([]float32, 4096)
	out := r.Process(in)
	assert.Greater(t, len(out), len(in))
}

func TestSincDownsampleProducesFewerSamples(t *testing.T) {
	r := NewSinc(48000, 24000)
	in := make([]float32, 4096)
	out := r.Process(in)
	assert.Less(t, len(out), len(in))
}
