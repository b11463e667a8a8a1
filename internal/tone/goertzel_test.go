package tone

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sineWave(freqHz, sampleRate float64, n int, amplitude float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/sampleRate))
	}
	return out
}

func TestDetectorHitsOnTargetTone(t *testing.T) {
	d := NewDetector(48000, 1050, 0.6, 5e-5, 3)
	chunk := sineWave(1050, 48000, 2048, 0.5)

	var hit bool
	for i := 0; i < 3; i++ {
		hit = d.Detect(chunk)
	}
	assert.True(t, hit)
}

func TestDetectorMissesOffFrequencyTone(t *testing.T) {
	d := NewDetector(48000, 1050, 0.6, 5e-5, 3)
	chunk := sineWave(440, 48000, 2048, 0.5)

	var hit bool
	for i := 0; i < 5; i++ {
		hit = d.Detect(chunk)
	}
	assert.False(t, hit)
}

func TestDetectorResetsOnMiss(t *testing.T) {
	d := NewDetector(48000, 1050, 0.6, 5e-5, 3)
	tone := sineWave(1050, 48000, 2048, 0.5)
	silence := make([]float32, 2048)

	d.Detect(tone)
	d.Detect(tone)
	d.Detect(silence)
	assert.False(t, d.Detect(tone))
}

func TestDetectorSilenceNeverHits(t *testing.T) {
	d := NewDetector(48000, 1050, 0.6, 5e-5, 3)
	silence := make([]float32, 2048)
	var hit bool
	for i := 0; i < 5; i++ {
		hit = d.Detect(silence)
	}
	assert.False(t, hit)
}
