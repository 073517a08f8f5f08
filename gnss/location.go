package gnss

import (
	"strconv"
	"strings"
	"time"
)

// AccuracyUnknown is the sentinel carried when the positioning subsystem
// reports no horizontal accuracy estimate.
const AccuracyUnknown = 999.0

// Location is a normalized positioning record. A Location with Valid=false
// must never be transmitted as a real fix; callers substitute an absent
// location instead.
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	TakenAt   int64
	Valid     bool
}

// None returns the explicit "no fix" record.
func None() Location {
	return Location{Accuracy: AccuracyUnknown, TakenAt: time.Now().UnixMilli()}
}

// ParseFix parses a positioning reply payload into a Location. The sentence
// format varies by hardware revision, so parsing is defensive: the payload is
// split on commas, leading mode/status fields are tolerated, coordinates may
// arrive in decimal degrees or degrees+decimal-minutes form, and hemisphere
// letters (N/S/E/W) may follow each coordinate as a separate field.
//
// An all-zero coordinate pair is "no fix", not a literal position on the
// equator/prime meridian.
func ParseFix(payload string) (Location, bool) {
	loc := None()
	fields := splitFields(payload)

	lat, latIdx, ok := firstCoordinate(fields, 0)
	if !ok {
		return loc, false
	}
	next := latIdx + 1
	if sign, used := hemisphereSign(fields, next); used {
		lat *= sign
		next++
	}
	lon, lonIdx, ok := firstCoordinate(fields, next)
	if !ok {
		return loc, false
	}
	next = lonIdx + 1
	if sign, used := hemisphereSign(fields, next); used {
		lon *= sign
		next++
	}
	if lat == 0 && lon == 0 {
		return loc, false
	}

	loc.Latitude = lat
	loc.Longitude = lon
	loc.Accuracy = trailingAccuracy(fields, next)
	loc.Valid = true
	return loc, true
}

func splitFields(payload string) []string {
	if idx := strings.Index(payload, ":"); idx != -1 {
		payload = payload[idx+1:]
	}
	payload = strings.NewReplacer("\"", "", "\r", "", "\n", "").Replace(payload)
	raw := strings.Split(payload, ",")
	fields := make([]string, 0, len(raw))
	for _, field := range raw {
		fields = append(fields, strings.TrimSpace(field))
	}
	return fields
}

// firstCoordinate scans forward from start for the first token that looks
// like a coordinate: a fractional number. Integer-only leading fields are
// mode/status flags and get skipped.
func firstCoordinate(fields []string, start int) (float64, int, bool) {
	for i := start; i < len(fields); i++ {
		token := fields[i]
		if token == "" || !strings.Contains(token, ".") {
			continue
		}
		// More than five integer digits is a UTC date/time field, not a
		// coordinate (ddmm.mmmm is 4, dddmm.mmmm is 5).
		digits := strings.TrimLeft(token, "+-")
		if strings.Index(digits, ".") > 5 {
			continue
		}
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			continue
		}
		coord := normalizeCoordinate(token, value)
		if coord < -180 || coord > 180 {
			continue
		}
		return coord, i, true
	}
	return 0, 0, false
}

// normalizeCoordinate converts degrees+decimal-minutes tokens (ddmm.mmmm or
// dddmm.mmmm) to decimal degrees. The form is detected by decimal-point
// position: four or more integer digits can only be a minutes encoding.
func normalizeCoordinate(token string, value float64) float64 {
	digits := strings.TrimLeft(token, "+-")
	point := strings.Index(digits, ".")
	if point < 4 {
		return value
	}
	sign := 1.0
	if value < 0 {
		sign = -1.0
		value = -value
	}
	degrees := float64(int(value / 100))
	minutes := value - degrees*100
	return sign * (degrees + minutes/60)
}

func hemisphereSign(fields []string, idx int) (float64, bool) {
	if idx >= len(fields) {
		return 1, false
	}
	switch fields[idx] {
	case "N", "E":
		return 1, true
	case "S", "W":
		return -1, true
	}
	return 1, false
}

// trailingAccuracy picks the first plausible accuracy token after the
// coordinates, falling back to the unknown sentinel. Date and UTC-time
// fields are ruled out: they are integers or fractional values far beyond
// any meter figure the hardware reports.
func trailingAccuracy(fields []string, start int) float64 {
	for i := start; i < len(fields); i++ {
		if !strings.Contains(fields[i], ".") {
			continue
		}
		value, err := strconv.ParseFloat(fields[i], 64)
		if err != nil || value < 0 || value >= 10000 {
			continue
		}
		return value
	}
	return AccuracyUnknown
}
