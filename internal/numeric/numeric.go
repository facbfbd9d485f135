// Package numeric parses Japanese kana number words and renders them as
// half-width or full-width digits.
//
// Inputs like にじゅうさん and さんびゃくよんじゅうご are parsed into values,
// including rendaku variants (ろっぴゃく, はっせん) and large units up to
// ちょう (10^12).
package numeric

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var digits = []struct {
	kana  string
	value uint64
}{
	// Longest first so きゅう wins over く... ordering is handled by the
	// caller scanning this slice top to bottom.
	{"きゅう", 9},
	{"いち", 1},
	{"さん", 3},
	{"よん", 4},
	{"ろく", 6},
	{"なな", 7},
	{"はち", 8},
	{"しち", 7},
	{"に", 2},
	{"し", 4},
	{"よ", 4},
	{"ご", 5},
	{"く", 9},
}

var largeUnits = []struct {
	kana  string
	value uint64
}{
	{"ちょう", 1_000_000_000_000},
	{"おく", 100_000_000},
	{"まん", 10_000},
}

// Parse parses a hiragana number string. The second return is false when the
// input is not a valid Japanese number expression.
func Parse(kana string) (uint64, bool) {
	if kana == "" {
		return 0, false
	}
	if kana == "ぜろ" || kana == "れい" {
		return 0, true
	}

	rest := kana
	var result uint64
	group := parseGroup(&rest)

	for _, unit := range largeUnits {
		idx := strings.Index(rest, unit.kana)
		if idx < 0 {
			continue
		}
		if idx != 0 {
			// Material before the unit should have been consumed into group.
			return 0, false
		}
		rest = rest[len(unit.kana):]
		if group == 0 {
			// Bare unit, e.g. まん = 10000.
			group = 1
		}
		result += group * unit.value
		group = parseGroup(&rest)
	}

	result += group
	if rest != "" || result == 0 {
		return 0, false
	}
	return result, true
}

// parseGroup parses a value below 10000 from the front of *rest.
func parseGroup(rest *string) uint64 {
	var value uint64
	value += parseUnit(rest, 1000)
	value += parseUnit(rest, 100)
	value += parseUnit(rest, 10)
	if d, n := consumeDigit(*rest); n > 0 {
		*rest = (*rest)[n:]
		value += d
	}
	return value
}

// parseUnit parses [digit]+unit (e.g. さんびゃく) or a bare unit from *rest.
func parseUnit(rest *string, unitVal uint64) uint64 {
	saved := *rest

	if d, n := consumeDigitOrRendaku(saved, unitVal); n > 0 {
		after := saved[n:]
		if un := consumeUnitKana(after, unitVal); un > 0 {
			*rest = after[un:]
			return d * unitVal
		}
	}

	if un := consumeUnitKana(saved, unitVal); un > 0 {
		*rest = saved[un:]
		return unitVal
	}
	return 0
}

// consumeDigit matches a digit word at the front of s, returning its value
// and byte length.
func consumeDigit(s string) (uint64, int) {
	for _, d := range digits {
		if strings.HasPrefix(s, d.kana) {
			return d.value, len(d.kana)
		}
	}
	return 0, 0
}

// consumeDigitOrRendaku additionally accepts rendaku digit prefixes that only
// occur before specific units (ろっぴゃく, はっせん, ...).
func consumeDigitOrRendaku(s string, unitVal uint64) (uint64, int) {
	switch unitVal {
	case 100:
		if strings.HasPrefix(s, "ろっ") {
			return 6, len("ろっ")
		}
		if strings.HasPrefix(s, "はっ") {
			return 8, len("はっ")
		}
	case 1000:
		if strings.HasPrefix(s, "はっ") {
			return 8, len("はっ")
		}
	}
	return consumeDigit(s)
}

// consumeUnitKana matches the unit word (including rendaku forms of 100) at
// the front of s, returning its byte length.
func consumeUnitKana(s string, unitVal uint64) int {
	var forms []string
	switch unitVal {
	case 1000:
		forms = []string{"せん", "ぜん"}
	case 100:
		forms = []string{"ひゃく", "びゃく", "ぴゃく"}
	case 10:
		forms = []string{"じゅう"}
	}
	for _, f := range forms {
		if strings.HasPrefix(s, f) {
			return len(f)
		}
	}
	return 0
}

// ToHalfwidth renders n as ASCII digits.
func ToHalfwidth(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// ToFullwidth renders n as full-width digits (２３).
func ToFullwidth(n uint64) string {
	return width.Widen.String(strconv.FormatUint(n, 10))
}
