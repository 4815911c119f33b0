package vitals

import (
	"strconv"
	"strings"
)

// Trend values reported for latest-per-type measurements.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Measurement types that describe the body rather than a fluctuating value;
// they never trend.
var staticTypes = map[string]bool{
	"Înălțime": true,
	"Greutate": true,
}

const bloodPressureType = "Tensiune arterială"

// ComputeTrend compares a measurement against its type's normal range.
// Blood pressure uses the systolic bound of a "low/xx - high/yy" range; any
// unparseable range yields stable.
func ComputeTrend(v *Vital) string {
	if staticTypes[v.TypeName] {
		return TrendStable
	}
	if v.NormalRange == nil {
		return TrendStable
	}

	if v.TypeName == bloodPressureType {
		if v.ValueSystolic == nil {
			return TrendStable
		}
		lowSys, highSys, ok := parseCompoundRange(*v.NormalRange)
		if !ok {
			return TrendStable
		}
		switch {
		case *v.ValueSystolic > highSys:
			return TrendUp
		case *v.ValueSystolic < lowSys:
			return TrendDown
		}
		return TrendStable
	}

	if v.Value == nil {
		return TrendStable
	}
	min, max, ok := parseSimpleRange(*v.NormalRange)
	if !ok {
		return TrendStable
	}
	switch {
	case *v.Value > max:
		return TrendUp
	case *v.Value < min:
		return TrendDown
	}
	return TrendStable
}

// parseSimpleRange parses "min - max" (a trailing unit after max is ignored).
func parseSimpleRange(s string) (min, max float64, ok bool) {
	parts := strings.SplitN(s, " - ", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	maxStr := strings.TrimSpace(strings.SplitN(strings.TrimSpace(parts[1]), " ", 2)[0])
	max, err = strconv.ParseFloat(maxStr, 64)
	if err != nil {
		return 0, 0, false
	}
	return min, max, true
}

// parseCompoundRange parses the systolic bounds out of "low/xx - high/yy".
func parseCompoundRange(s string) (lowSys, highSys float64, ok bool) {
	parts := strings.SplitN(s, " - ", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lowStr := strings.TrimSpace(strings.SplitN(parts[0], "/", 2)[0])
	lowSys, err := strconv.ParseFloat(lowStr, 64)
	if err != nil {
		return 0, 0, false
	}
	highPart := strings.TrimSpace(strings.SplitN(strings.TrimSpace(parts[1]), " ", 2)[0])
	highStr := strings.SplitN(highPart, "/", 2)[0]
	highSys, err = strconv.ParseFloat(highStr, 64)
	if err != nil {
		return 0, 0, false
	}
	return lowSys, highSys, true
}
