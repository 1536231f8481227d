package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// hoursPerUnit lists the units understood on top of time.ParseDuration.
var hoursPerUnit = map[string]float64{
	"d": 24,
	"w": 7 * 24,
}

// parseDurationExtended parses Go-style duration strings and adds support for:
// - d (days) where 1d = 24h
// - w (weeks) where 1w = 7d
//
// Examples: "60m", "1d", "1w2d", "1.5d", "-2w".
func parseDurationExtended(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("duration is required")
	}
	if !strings.ContainsAny(raw, "dw") {
		return time.ParseDuration(raw)
	}
	expanded, err := expandToHours(raw)
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(expanded)
}

func expandToHours(raw string) (string, error) {
	invalid := fmt.Errorf("invalid duration %q", raw)
	s := raw

	var b strings.Builder
	if s[0] == '+' || s[0] == '-' {
		b.WriteByte(s[0])
		s = s[1:]
		if s == "" {
			return "", invalid
		}
	}

	for s != "" {
		numStr, rest := splitNumber(s)
		if numStr == "" {
			return "", invalid
		}
		unit, rest, ok := splitUnit(rest)
		if !ok {
			return "", invalid
		}
		s = rest

		hours, extended := hoursPerUnit[unit]
		if !extended {
			// Go validates the remaining units.
			b.WriteString(numStr)
			b.WriteString(unit)
			continue
		}
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return "", invalid
		}
		b.WriteString(strconv.FormatFloat(num*hours, 'f', -1, 64))
		b.WriteByte('h')
	}
	return b.String(), nil
}

// splitNumber consumes [0-9]+(\.[0-9]+)? from the front of s.
func splitNumber(s string) (string, string) {
	i := 0
	dotSeen := false
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' {
			i++
			continue
		}
		if c == '.' && !dotSeen {
			dotSeen = true
			i++
			continue
		}
		break
	}
	return s[:i], s[i:]
}

// splitUnit consumes one or more letters (including µ) from the front of s.
func splitUnit(s string) (string, string, bool) {
	j := 0
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if r == utf8.RuneError && size == 1 {
			return "", "", false
		}
		if r != 'µ' && !unicode.IsLetter(r) {
			break
		}
		j += size
	}
	if j == 0 {
		return "", "", false
	}
	return s[:j], s[j:], true
}
