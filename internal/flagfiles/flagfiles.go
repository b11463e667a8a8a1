// Package flagfiles persists two sentinel files other processes poll to
// learn about active severe weather: severe_day.txt (a warning-level alert
// or tornado watch is active) and rainy_day.txt (a moderate watch is active
// and nothing more severe is). At most one of the two ever exists.
package flagfiles

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wagsendc/eas-listener/internal/state"
)

const (
	severeFilename = "severe_day.txt"
	rainyFilename  = "rainy_day.txt"
)

// Update recomputes the two flag files from the current active-alert set.
// Severe (SVR/TOR/TOA) wins over moderate (SVA); if neither is present both
// files are removed.
func Update(dir string, alerts []state.ActiveAlert) error {
	severePath := filepath.Join(dir, severeFilename)
	rainyPath := filepath.Join(dir, rainyFilename)

	hasSevere := false
	hasModerate := false
	for _, a := range alerts {
		code := a.Data.EventCode
		if state.SevereWarningCodes[code] {
			hasSevere = true
		}
		if state.ModerateWatchCodes[code] {
			hasModerate = true
		}
	}

	switch {
	case hasSevere:
		if err := writeFlag(severePath); err != nil {
			return err
		}
		return removeFlag(rainyPath)
	case hasModerate:
		if err := writeFlag(rainyPath); err != nil {
			return err
		}
		return removeFlag(severePath)
	default:
		if err := removeFlag(severePath); err != nil {
			return err
		}
		return removeFlag(rainyPath)
	}
}

func writeFlag(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		return fmt.Errorf("write flag file %s: %w", path, err)
	}
	return nil
}

func removeFlag(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove flag file %s: %w", path, err)
	}
	return nil
}
