// Package threshold parses check limit strings such as "200MB" or "20%"
// into structured thresholds.
package threshold

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Unit identifies how a threshold amount is interpreted
type Unit int

const (
	// UnitPercent is relative to the measured total
	UnitPercent Unit = iota + 1
	// UnitKB is 1024 bytes
	UnitKB
	// UnitMB is 1024^2 bytes
	UnitMB
	// UnitGB is 1024^3 bytes
	UnitGB
	// UnitTB is 1024^4 bytes
	UnitTB
)

var unitTokens = map[string]Unit{
	"%":  UnitPercent,
	"KB": UnitKB,
	"MB": UnitMB,
	"GB": UnitGB,
	"TB": UnitTB,
}

// String returns the unit token as written in limit strings
func (u Unit) String() string {
	switch u {
	case UnitPercent:
		return "%"
	case UnitKB:
		return "KB"
	case UnitMB:
		return "MB"
	case UnitGB:
		return "GB"
	case UnitTB:
		return "TB"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// ByteUnit returns the absolute size unit, or false for a percentage.
func (u Unit) ByteUnit() (ByteUnit, bool) {
	switch u {
	case UnitKB:
		return KB, true
	case UnitMB:
		return MB, true
	case UnitGB:
		return GB, true
	case UnitTB:
		return TB, true
	default:
		return 0, false
	}
}

// Threshold is the parsed form of a limit string
type Threshold struct {
	Amount float64 `json:"amount"`
	Unit   Unit    `json:"-"`
}

// IsPercent reports whether the threshold is relative to the total capacity
func (t Threshold) IsPercent() bool {
	return t.Unit == UnitPercent
}

// String renders the threshold the way it is written in rule files
func (t Threshold) String() string {
	return strconv.FormatFloat(t.Amount, 'f', -1, 64) + t.Unit.String()
}

// ParseError is returned when a limit string cannot be turned into a Threshold
type ParseError struct {
	Limit  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid limit %q: %s", e.Limit, e.Reason)
}

// limitRegex splits "<amount><space?><unit>"; the unit is validated separately
// so that a missing unit and an unknown unit produce distinct reasons.
var limitRegex = regexp.MustCompile(`^([\d.]*)\s*(\D{1,2})?$`)

// Parse converts a limit string into a Threshold.
//
// Examples:
//   - "20%"    -> {20, %}
//   - "200 MB" -> {200, MB}
//   - "1.5tb"  -> {1.5, TB}
//   - "100"    -> error (no unit)
func Parse(limit string) (Threshold, error) {
	trimmed := strings.TrimSpace(limit)

	m := limitRegex.FindStringSubmatch(trimmed)
	if m == nil {
		return Threshold{}, &ParseError{Limit: limit, Reason: "expected <number><unit>, e.g. 200MB or 20%"}
	}

	amountStr, token := m[1], strings.TrimSpace(m[2])
	if token == "" {
		return Threshold{}, &ParseError{Limit: limit, Reason: "missing unit (use %, KB, MB, GB or TB)"}
	}
	if amountStr == "" || strings.Count(amountStr, ".") > 1 {
		return Threshold{}, &ParseError{Limit: limit, Reason: "amount is not a valid decimal number"}
	}

	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount < 0 {
		return Threshold{}, &ParseError{Limit: limit, Reason: "amount is not a valid decimal number"}
	}

	unit, ok := unitTokens[strings.ToUpper(token)]
	if !ok {
		return Threshold{}, &ParseError{Limit: limit, Reason: fmt.Sprintf("unrecognized unit %q", token)}
	}

	return Threshold{Amount: amount, Unit: unit}, nil
}

// MustParse parses a limit string or panics.
// Use only for literals that are known to be valid.
func MustParse(limit string) Threshold {
	t, err := Parse(limit)
	if err != nil {
		panic(err)
	}
	return t
}
