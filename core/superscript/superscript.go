// Package superscript maps verse numbers to Unicode superscript glyphs.
//
// The mapping is closed: ASCII digits plus the footnote letters "a" and "b"
// used by split verses. Anything else is rejected rather than passed through.
package superscript

import (
	"strings"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
)

var table = map[rune]rune{
	'0': '⁰',
	'1': '¹',
	'2': '²',
	'3': '³',
	'4': '⁴',
	'5': '⁵',
	'6': '⁶',
	'7': '⁷',
	'8': '⁸',
	'9': '⁹',
	'a': 'ᵃ',
	'b': 'ᵇ',
}

// Supported reports whether r has a superscript form.
func Supported(r rune) bool {
	_, ok := table[r]
	return ok
}

// Encode returns the superscript form of s, one glyph per input rune.
// It fails with *errors.EncodingError on the first unsupported rune.
func Encode(s string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(s) * 3)
	i := 0
	for _, r := range s {
		sup, ok := table[r]
		if !ok {
			return "", &errors.EncodingError{Input: s, Char: r, Position: i}
		}
		sb.WriteRune(sup)
		i++
	}
	return sb.String(), nil
}

// MustEncode is like Encode but panics on unsupported input.
func MustEncode(s string) string {
	out, err := Encode(s)
	if err != nil {
		panic(err)
	}
	return out
}

// IsPrefixed reports whether line starts with at least one superscript glyph
// followed by a single space.
func IsPrefixed(line string) bool {
	n := 0
	for i, r := range line {
		if isSuperscript(r) {
			n++
			continue
		}
		return n > 0 && r == ' ' && !strings.HasPrefix(line[i+1:], " ")
	}
	return false
}

func isSuperscript(r rune) bool {
	for _, sup := range table {
		if sup == r {
			return true
		}
	}
	return false
}
