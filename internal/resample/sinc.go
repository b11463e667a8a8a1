// Package resample converts decoded mono audio to the 48 kHz rate the rest
// of the pipeline operates on, using a band-limited windowed-sinc filter.
package resample

import "math"

const (
	// sincHalfLength is half the filter length in input samples (256 taps total).
	sincHalfLength = 128
	// cutoff is the normalized cutoff frequency relative to the input
	// sample rate, leaving headroom below Nyquist to tame aliasing. The
	// kernel is not narrowed when downsampling.
	cutoff = 0.95
	// oversample is how finely the sinc kernel is pre-tabulated; fractional
	// taps are linearly interpolated between adjacent table entries.
	oversample = 256
)

// Sinc is a stateful band-limited resampler. Create one per stream and feed
// it contiguous sample runs; it keeps the trailing history needed so the
// window spans correctly across Process calls.
type Sinc struct {
	inRate, outRate float64
	table           []float64 // precomputed windowed-sinc kernel, oversampled
	history         []float64 // trailing input samples carried across calls
	pos             float64   // fractional input-sample position of the next output sample
}

// NewSinc builds a resampler converting from inRate to outRate.
func NewSinc(inRate, outRate int) *Sinc {
	s := &Sinc{inRate: float64(inRate), outRate: float64(outRate)}
	s.table = buildKernelTable()
	s.history = make([]float64, 2*sincHalfLength)
	return s
}

// buildKernelTable tabulates a windowed sinc function at oversample points
// per input sample, using a squared Blackman-Harris window, matching the
// parameters of a standard high-quality sinc resampler: length 256,
// cutoff 0.95, oversampling 256, linear interpolation between table entries.
func buildKernelTable() []float64 {
	n := sincHalfLength * oversample
	table := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		x := float64(i) / float64(oversample)
		table[i] = sincValue(x) * blackmanHarris2(x)
	}
	return table
}

func sincValue(x float64) float64 {
	x *= cutoff
	if x == 0 {
		return cutoff
	}
	px := math.Pi * x
	return cutoff * math.Sin(px) / px
}

// blackmanHarris2 is the standard 4-term Blackman-Harris window, squared,
// evaluated over the half-length [0, sincHalfLength].
func blackmanHarris2(x float64) float64 {
	const (
		a0 = 0.35875
		a1 = 0.48829
		a2 = 0.14128
		a3 = 0.01168
	)
	t := x / float64(sincHalfLength)
	if t > 1 {
		return 0
	}
	// Window is defined on [-1, 1]; fold using cos terms over half period.
	w := a0 - a1*math.Cos(math.Pi*(1+t)) + a2*math.Cos(2*math.Pi*(1+t)) - a3*math.Cos(3*math.Pi*(1+t))
	return w * w
}

// kernelAt returns the interpolated kernel value at fractional offset tap
// (tap may be negative or positive, magnitude up to sincHalfLength).
func (s *Sinc) kernelAt(tap float64) float64 {
	neg := tap < 0
	if neg {
		tap = -tap
	}
	if tap >= sincHalfLength {
		return 0
	}
	idx := tap * oversample
	lo := int(idx)
	frac := idx - float64(lo)
	v0 := s.table[lo]
	v1 := s.table[lo+1]
	v := v0 + frac*(v1-v0)
	if neg {
		return v
	}
	return v
}

// Process resamples in and returns the resampled output. It maintains
// fractional phase and trailing history across calls so a caller can stream
// fixed-size chunks through it continuously.
func (s *Sinc) Process(in []float32) []float32 {
	histLen := len(s.history)
	buf := make([]float64, histLen+len(in))
	copy(buf, s.history)
	for i, v := range in {
		buf[histLen+i] = float64(v)
	}

	ratio := s.inRate / s.outRate
	var out []float32

	// srcIdx walks through buf at the resampling ratio; each output sample
	// needs sincHalfLength taps on either side available.
	srcIdx := s.pos
	for {
		lo := int(math.Floor(srcIdx)) - sincHalfLength
		hi := int(math.Ceil(srcIdx)) + sincHalfLength
		if hi >= len(buf) {
			break
		}
		if lo < 0 {
			lo = 0
		}

		var acc float64
		for i := lo; i < hi; i++ {
			acc += buf[i] * s.kernelAt(srcIdx-float64(i))
		}
		out = append(out, float32(clip(acc)))
		srcIdx += ratio
	}

	// Keep the trailing 2*sincHalfLength samples of buf (relative to where
	// srcIdx stopped) as history for the next call, and rebase pos onto it.
	keep := 2 * sincHalfLength
	start := len(buf) - keep
	if start < 0 {
		start = 0
	}
	newHistory := make([]float64, keep)
	copy(newHistory[keep-(len(buf)-start):], buf[start:])
	s.pos = srcIdx - float64(start)
	s.history = newHistory

	return out
}

func clip(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
