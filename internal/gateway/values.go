package gateway

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical day format used for storage and filters.
const DateLayout = "2006-01-02"

// ToFloat converts numeric scalars and numeric strings to float64. NaN and
// infinities are not numbers here.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, finite(n)
	case float32:
		return float64(n), finite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		return ParseNumeric(n)
	case []byte:
		return ParseNumeric(string(n))
	default:
		return 0, false
	}
}

// ToString renders a scalar for display and equality filters.
func ToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(DateLayout)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// ParseTime accepts the date layouts found in exported spreadsheets.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		DateLayout, time.RFC3339, "2006/01/02", "2006-01-02 15:04", "2006-01-02 15:04:05",
		"01/02/2006", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumeric parses numbers written with either '.' or ',' as decimal
// separator, optional thousands separators and a trailing percent sign.
func ParseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	// The separator appearing last is the decimal one.
	dec := '.'
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	if cpos >= 0 && dpos >= 0 {
		if cpos > dpos {
			dec = ','
		}
	} else if cpos >= 0 && strings.Count(raw, ",") == 1 && len(raw)-cpos-1 != 3 {
		dec = ','
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return f, true
}

// IsNonFinite reports whether v is NaN or an infinity, either as a float or
// as a spelling strconv accepts ("NaN", "Inf", "-Infinity"). Such cells are
// treated as missing.
func IsNonFinite(v any) bool {
	switch n := v.(type) {
	case float64:
		return !finite(n)
	case float32:
		return !finite(float64(n))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return err == nil && !finite(f)
	}
	return false
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// day truncates t to its calendar day in UTC.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
