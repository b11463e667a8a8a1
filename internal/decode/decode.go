// Package decode wraps the MP3 and Ogg/Vorbis decoders behind one
// interface so the rest of the pipeline never needs to know which codec a
// given Icecast stream happens to use.
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Source is a decoded PCM stream: interleaved samples, one float32 per
// channel per frame, normalized to [-1, 1].
type Source interface {
	SampleRate() int
	Channels() int
	// ReadFloat32 fills buf with interleaved samples and returns how many
	// float32 values (not frames) were written.
	ReadFloat32(buf []float32) (int, error)
}

// Open picks a decoder based on the stream's advertised content type and
// wraps r accordingly. Unrecognized content types are decoded as MP3, since
// that is the overwhelmingly common case for NOAA Weather Radio Icecast
// relays; no other decoder is tried if that fails.
func Open(contentType string, r io.Reader) (Source, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "ogg") || strings.Contains(ct, "vorbis"):
		return newVorbisSource(r)
	default:
		return newMP3Source(r)
	}
}

type mp3Source struct {
	dec *mp3.Decoder
}

func newMP3Source(r io.Reader) (*mp3Source, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("open mp3 stream: %w", err)
	}
	return &mp3Source{dec: dec}, nil
}

func (m *mp3Source) SampleRate() int { return m.dec.SampleRate() }
func (m *mp3Source) Channels() int   { return 2 } // go-mp3 always produces interleaved stereo

// ReadFloat32 reads raw little-endian 16-bit stereo PCM from the decoder and
// converts it to normalized float32, two values in, two out per frame.
func (m *mp3Source) ReadFloat32(buf []float32) (int, error) {
	raw := make([]byte, len(buf)*2)
	n, err := io.ReadFull(m.dec, raw)
	if n == 0 {
		return 0, err
	}
	// io.ReadFull on a short final read returns ErrUnexpectedEOF with n>0;
	// treat that as a normal partial read and surface actual EOF next call.
	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
		buf[i] = float32(v) / 32768.0
	}
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return samples, err
}

type vorbisSource struct {
	r *oggvorbis.Reader
}

func newVorbisSource(r io.Reader) (*vorbisSource, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open vorbis stream: %w", err)
	}
	return &vorbisSource{r: dec}, nil
}

func (v *vorbisSource) SampleRate() int { return v.r.SampleRate() }
func (v *vorbisSource) Channels() int   { return v.r.Channels() }

func (v *vorbisSource) ReadFloat32(buf []float32) (int, error) {
	return v.r.Read(buf)
}

// Downmix averages an interleaved multi-channel buffer down to mono.
// A channels value of 1 is a no-op copy.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		copy(out, interleaved)
		return out
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// clampFloat32 guards against decoder output that strays outside [-1, 1],
// which the windowed-sinc resampler assumes as its working range.
func clampFloat32(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	if math.IsNaN(float64(v)) {
		return 0
	}
	return v
}
