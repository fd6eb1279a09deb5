// Package checks decides whether a measured resource snapshot violates a
// configured threshold.
package checks

import (
	"fmt"
	"strings"

	"github.com/Dicklesworthstone/rulewatch/internal/threshold"
)

// Snapshot is a point-in-time capacity measurement for one target, in bytes
type Snapshot struct {
	Total     float64 `json:"total"`
	Available float64 `json:"available"`
}

// Used returns the consumed capacity
func (s Snapshot) Used() float64 {
	return s.Total - s.Available
}

// Mode selects which side of the capacity a threshold applies to
type Mode int

const (
	// ModeFreeRemaining alerts when available space undershoots the threshold
	ModeFreeRemaining Mode = iota + 1
	// ModeUsedConsumed alerts when consumed space exceeds the threshold
	ModeUsedConsumed
)

// String returns the mode keyword used in rule files
func (m Mode) String() string {
	switch m {
	case ModeFreeRemaining:
		return "free"
	case ModeUsedConsumed:
		return "used"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// UnsupportedModeError is returned for a mode keyword other than free or used
type UnsupportedModeError struct {
	Mode string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unknown check mode %q (expected free or used)", e.Mode)
}

// ParseMode converts a rule file keyword into a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free":
		return ModeFreeRemaining, nil
	case "used":
		return ModeUsedConsumed, nil
	default:
		return 0, &UnsupportedModeError{Mode: s}
	}
}

// ThresholdBytes resolves a threshold against a snapshot.
// Percentages are relative to the snapshot total. A threshold whose unit is
// outside the closed unit set, such as the zero value, yields a
// *threshold.ParseError.
func ThresholdBytes(s Snapshot, t threshold.Threshold) (float64, error) {
	if t.IsPercent() {
		return s.Total * (t.Amount / 100), nil
	}
	bu, ok := t.Unit.ByteUnit()
	if !ok {
		return 0, &threshold.ParseError{Limit: t.String(), Reason: "unknown unit"}
	}
	return t.Amount * float64(threshold.BytesPerUnit(bu)), nil
}

// Evaluate reports whether the check fails. Both modes compare strictly, so a
// measurement exactly at the limit passes. A mode other than free or used
// yields an *UnsupportedModeError.
func Evaluate(s Snapshot, m Mode, t threshold.Threshold) (bool, error) {
	limit, err := ThresholdBytes(s, t)
	if err != nil {
		return false, err
	}

	switch m {
	case ModeFreeRemaining:
		return limit > s.Available, nil
	case ModeUsedConsumed:
		return s.Used() > limit, nil
	default:
		return false, &UnsupportedModeError{Mode: m.String()}
	}
}
