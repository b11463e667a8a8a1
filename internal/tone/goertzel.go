// Package tone detects the 1050 Hz NOAA Weather Radio attention tone in a
// stream of mono float samples using a single-bin Goertzel filter.
package tone

import "math"

// Detector runs a Goertzel filter tuned to one frequency over successive
// chunks of samples and tracks how many consecutive chunks look like a
// sustained tone.
type Detector struct {
	coeff              float64
	ratioThreshold     float64
	minAvgPower        float64
	requiredHits       int
	consecutiveHits    int
}

// NewDetector builds a Detector for targetHz at sampleRate. ratioThreshold
// is the minimum ratio of the target bin's Goertzel power to the chunk's
// summed sample energy (not a fraction: for a pure tone it is about half the
// chunk length), minAvgPower is the minimum average power per sample required before
// a chunk is even considered, and requiredHits is how many consecutive
// chunks must hit before Detect reports the tone present.
func NewDetector(sampleRate, targetHz, ratioThreshold, minAvgPower float64, requiredHits int) *Detector {
	k := 2 * math.Cos(2*math.Pi*targetHz/sampleRate)
	return &Detector{
		coeff:          k,
		ratioThreshold: ratioThreshold,
		minAvgPower:    minAvgPower,
		requiredHits:   requiredHits,
	}
}

// Detect feeds one chunk of samples through the filter and returns whether
// the required number of consecutive chunks have now hit. Internal hit
// count resets to zero on any chunk that misses.
func (d *Detector) Detect(samples []float32) bool {
	if len(samples) == 0 {
		d.consecutiveHits = 0
		return d.consecutiveHits >= d.requiredHits
	}

	var q1, q2, totalEnergy float64
	for _, s := range samples {
		x := float64(s)
		q0 := x + d.coeff*q1 - q2
		q2 = q1
		q1 = q0
		totalEnergy += x * x
	}

	toneEnergy := q1*q1 + q2*q2 - d.coeff*q1*q2
	if toneEnergy < 0 {
		toneEnergy = 0
	}
	avgPower := totalEnergy / float64(len(samples))
	denom := totalEnergy
	if denom < 1e-12 {
		denom = 1e-12
	}
	toneRatio := toneEnergy / denom

	hit := avgPower >= d.minAvgPower && toneRatio >= d.ratioThreshold
	if hit {
		d.consecutiveHits++
	} else {
		d.consecutiveHits = 0
	}
	return d.consecutiveHits >= d.requiredHits
}

// Reset clears the consecutive-hit counter, e.g. after a recording starts
// so the next detection window starts clean.
func (d *Detector) Reset() {
	d.consecutiveHits = 0
}
