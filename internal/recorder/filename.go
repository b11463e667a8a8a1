package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SanitizeLabel maps every character of label that isn't an ASCII letter, digit,
// hyphen, or underscore to a single underscore (one-for-one, no run
// collapsing), then trims leading/trailing underscores. An all-unsafe input
// becomes "UNKNOWN" rather than an empty string. Applied to both stream
// labels and event codes before either is embedded in a recording filename.
func SanitizeLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

// NextAvailablePath builds "EAS_Recording_<EEE>_<timestamp>_<label>.wav"
// under dir, and falls back to "..._1.wav", "..._2.wav", etc. if a file by
// that name already exists.
func NextAvailablePath(dir, eventCode, timestamp, streamLabel string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create recording dir: %w", err)
	}

	base := fmt.Sprintf("EAS_Recording_%s_%s_%s", SanitizeLabel(eventCode), timestamp, SanitizeLabel(streamLabel))
	candidate := filepath.Join(dir, base+".wav")
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate, nil
	}
	for n := 1; n < 10000; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d.wav", base, n))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no available filename for %s", base)
}
