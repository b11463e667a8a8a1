// Package recorder writes a self-contained WAV file for one alert
// recording: a synthesized SAME header tone, the captured audio body, and
// a synthesized NNNN tail tone. Empty recordings (no body audio ever
// arrived) are deleted rather than left on disk as zero-length artifacts.
package recorder

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// SampleRate is the fixed output rate for every recording, matching the
	// pipeline's downstream resampling target.
	SampleRate = 48000
	// HeaderAmplitude is the full-scale fraction used for synthesized
	// header/tail tones, matching the SAME modulation convention of
	// leaving headroom below clipping.
	HeaderAmplitude = 0.79
	bitsPerSample   = 16
	numChannels     = 1
)

// GenerateAFSKSamples synthesizes the mark/space AFSK tone burst for text,
// framing each byte as 1 start bit (0), 8 data bits LSB-first, and 1 stop
// bit (1), at the SAME baud rate. Used to embed a synthetic header or NNNN
// tail in a recording whose live audio didn't capture one cleanly.
func GenerateAFSKSamples(text string, sampleRate int, amplitude float64) []float32 {
	const (
		markHz  = 2083.3
		spaceHz = 1562.5
		baud    = 520.83
	)
	samplesPerBit := int(math.Round(float64(sampleRate) / baud))

	var bits []byte
	for _, c := range []byte(text) {
		bits = append(bits, 0) // start bit
		for i := 0; i < 8; i++ {
			bits = append(bits, (c>>uint(i))&1)
		}
		bits = append(bits, 1) // stop bit
	}

	out := make([]float32, 0, len(bits)*samplesPerBit)
	phase := 0.0
	for _, b := range bits {
		freq := spaceHz
		if b == 1 {
			freq = markHz
		}
		step := 2 * math.Pi * freq / float64(sampleRate)
		for i := 0; i < samplesPerBit; i++ {
			out = append(out, float32(amplitude*math.Sin(phase)))
			phase += step
		}
	}
	return out
}

// Writer streams float32 mono samples into a 48 kHz/16-bit PCM WAV file,
// bracketed by synthesized header and tail tone bursts.
type Writer struct {
	path       string
	file       *os.File
	enc        *wav.Encoder
	bodyFrames int64
}

// Create opens path for writing and immediately writes the header tone.
func Create(path, headerText string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}
	enc := wav.NewEncoder(f, SampleRate, bitsPerSample, numChannels, 1)

	w := &Writer{path: path, file: f, enc: enc}
	header := GenerateAFSKSamples(headerText, SampleRate, HeaderAmplitude)
	if err := w.writeFloat32(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// WriteBody writes one chunk of captured audio and counts it toward the
// zero-length check: a recording with no body audio gets deleted on Close.
func (w *Writer) WriteBody(samples []float32) error {
	if err := w.writeFloat32(samples); err != nil {
		return err
	}
	w.bodyFrames += int64(len(samples))
	return nil
}

// Close writes the NNNN tail tone, finalizes the WAV container, and deletes
// the file if no body audio was ever written.
func (w *Writer) Close(tailText string) error {
	tail := GenerateAFSKSamples(tailText, SampleRate, HeaderAmplitude)
	if err := w.writeFloat32(tail); err != nil {
		_ = w.enc.Close()
		_ = w.file.Close()
		return err
	}
	if err := w.enc.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close recording file: %w", err)
	}
	if w.bodyFrames == 0 {
		if err := os.Remove(w.path); err != nil {
			return fmt.Errorf("delete empty recording: %w", err)
		}
	}
	return nil
}

func (w *Writer) writeFloat32(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{SampleRate: SampleRate, NumChannels: numChannels},
		Data:   make([]int, len(samples)),
	}
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		buf.Data[i] = int(v * math.MaxInt16)
	}
	return w.enc.Write(buf)
}
