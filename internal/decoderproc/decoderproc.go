// Package decoderproc calls the external SAME header pretty-printer: a
// separate process (out of scope for this repo) that turns a raw "ZCZC-..."
// header into human-readable alert text. This package defines the narrow
// interface the core calls into and a concrete implementation that shells
// out to a configured script, mirroring how the alert manager invokes it.
package decoderproc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/wagsendc/eas-listener/internal/same"
	"github.com/wagsendc/eas-listener/internal/state"
)

// Decoder turns a raw SAME header into structured alert data.
type Decoder interface {
	Decode(ctx context.Context, rawHeader string) (state.AlertData, error)
}

// ScriptDecoder shells out to an external pretty-printer command, passing
// the raw header and timezone as arguments and parsing its JSON stdout.
type ScriptDecoder struct {
	Command  string
	Args     []string
	Timezone string
	Timeout  time.Duration
}

// NewScriptDecoder returns a ScriptDecoder with a sensible default timeout.
func NewScriptDecoder(command, timezone string, args ...string) *ScriptDecoder {
	return &ScriptDecoder{Command: command, Args: args, Timezone: timezone, Timeout: 5 * time.Second}
}

// Decode runs the configured command with "--msg <rawHeader> --tz <tz>"
// appended to Args, and parses its JSON stdout into an AlertData. On
// failure the caller falls back to a synthetic "decoder unavailable" alert
// rather than dropping the header entirely.
func (d *ScriptDecoder) Decode(ctx context.Context, rawHeader string) (state.AlertData, error) {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	args := append(append([]string{}, d.Args...), "--msg", rawHeader, "--tz", d.Timezone)
	cmd := exec.CommandContext(ctx, d.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return state.AlertData{}, fmt.Errorf("decoder process failed: %w: %s", err, stderr.String())
	}

	var data state.AlertData
	if err := json.Unmarshal(stdout.Bytes(), &data); err != nil {
		return state.AlertData{}, fmt.Errorf("parse decoder output: %w", err)
	}
	return data, nil
}

// Fallback builds the synthetic alert data used when the decoder process
// itself fails, so a malformed or unreachable external decoder never stalls
// the alert pipeline. It proceeds with whatever fields can be recovered by
// parsing the raw header directly (originator, event code, FIPS list) and
// only synthesizes placeholder text for the fields that genuinely require
// the pretty-printer (eas_text, event_text, locations).
func Fallback(rawHeader string) state.AlertData {
	data := state.AlertData{
		EASText:   "Decoder script failed.",
		EventText: "Unknown Event",
	}
	parsed, err := same.ParseHeader(rawHeader)
	if err != nil {
		data.EventCode = eventCodeFromHeader(rawHeader)
		return data
	}
	data.EventCode = parsed.EventCode
	data.Originator = parsed.Originator
	data.FIPS = parsed.FIPS
	return data
}

// eventCodeFromHeader extracts the EEE field directly from a raw header as
// a last resort, when even ParseHeader can't make sense of it: characters
// 9-11 of "ZCZC-ORG-EEE-...".
func eventCodeFromHeader(rawHeader string) string {
	if len(rawHeader) < 12 {
		return ""
	}
	return rawHeader[9:12]
}
