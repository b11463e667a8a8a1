// Package pipeline runs the per-connection decode/resample/detect loop: it
// turns a raw Icecast byte stream into fixed-size 48 kHz mono chunks, feeds
// them to the SAME receiver and the NOAA Weather Radio tone detector, and
// reports chunks and detections to the caller through Hooks.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/wagsendc/eas-listener/internal/decode"
	"github.com/wagsendc/eas-listener/internal/resample"
	"github.com/wagsendc/eas-listener/internal/same"
	"github.com/wagsendc/eas-listener/internal/tone"
)

const (
	// TargetSampleRate is the fixed rate every chunk is resampled to before
	// detection and recording.
	TargetSampleRate = 48000
	// ChunkSize is the fixed number of resampled samples processed per
	// detection/recording step.
	ChunkSize = 2048

	toneFreqHz            = 1050.0
	toneRatioThreshold    = 60.0
	toneMinAvgPower       = 5e-5
	toneMinConsecutiveHit = 8
	toneRearmSamples      = TargetSampleRate * 5 // 5s sustained before a tone recording can start
	toneRecordingSamples  = TargetSampleRate * 120
	sameSuppressWindow    = 300 * time.Second
	toneRearmDelay        = 120 * time.Second
)

// Hooks lets the caller react to what the pipeline observes without the
// pipeline itself knowing about alert state, recordings, or monitoring.
type Hooks struct {
	// OnChunk is called with every resampled, detection-ready chunk, so a
	// caller with an active recording can stream it to disk.
	OnChunk func(samples []float32)
	// OnSAMEHeader fires once per deduplicated decoded header.
	OnSAMEHeader func(rawHeader string)
	// OnSAMEEnd fires on the NNNN end-of-message marker.
	OnSAMEEnd func()
	// OnToneSustained fires the first time the 1050 Hz tone has been
	// present continuously for 5 seconds and is eligible to start a
	// recording (not currently SAME-suppressed, and past its own re-arm
	// delay from a previous tone recording).
	OnToneSustained func()
}

// Run decodes r (whose content type selects the MP3 or Ogg/Vorbis path),
// resamples to 48 kHz mono, and drives hooks until r is exhausted, ctx is
// cancelled, or decoding fails unrecoverably.
func Run(ctx context.Context, contentType string, r io.Reader, hooks Hooks) error {
	src, err := decode.Open(contentType, r)
	if err != nil {
		return fmt.Errorf("open decoder: %w", err)
	}

	resampler := resample.NewSinc(src.SampleRate(), TargetSampleRate)
	receiver := same.NewReceiver(TargetSampleRate)
	detector := tone.NewDetector(TargetSampleRate, toneFreqHz, toneRatioThreshold, toneMinAvgPower, toneMinConsecutiveHit)

	var (
		sameSuppressUntil time.Time
		toneRearmUntil    time.Time
		sustainedSamples  int
		pending           []float32
	)

	raw := make([]float32, 4096)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, readErr := src.ReadFloat32(raw)
		if n > 0 {
			mono := decode.Downmix(raw[:n], src.Channels())
			pending = append(pending, resampler.Process(mono)...)

			for len(pending) >= ChunkSize {
				chunk := pending[:ChunkSize]
				pending = pending[ChunkSize:]

				if hooks.OnChunk != nil {
					hooks.OnChunk(chunk)
				}

				for _, ev := range receiver.Feed(chunk) {
					switch ev.Kind {
					case same.EventHeader:
						sameSuppressUntil = time.Now().Add(sameSuppressWindow)
						if hooks.OnSAMEHeader != nil {
							hooks.OnSAMEHeader(ev.Header)
						}
					case same.EventEnd:
						if hooks.OnSAMEEnd != nil {
							hooks.OnSAMEEnd()
						}
					}
				}

				now := time.Now()
				suppressed := now.Before(sameSuppressUntil)
				rearmReady := now.After(toneRearmUntil)
				tonePresent := detector.Detect(chunk)

				switch {
				case suppressed || !rearmReady:
					sustainedSamples = 0
				case tonePresent:
					sustainedSamples += len(chunk)
				default:
					sustainedSamples = 0
				}

				if !suppressed && rearmReady && sustainedSamples >= toneRearmSamples {
					if hooks.OnToneSustained != nil {
						hooks.OnToneSustained()
					}
					sustainedSamples = 0
					toneRearmUntil = now.Add(toneRearmDelay)
				}
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return fmt.Errorf("decode stream: %w", readErr)
		}
	}
}
