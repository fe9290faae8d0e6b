package normalize

import "strings"

// HeaderCase classifies where a verse's brackets sit relative to the
// psalm's descriptive header while the header is still being searched for.
type HeaderCase int

const (
	// NoHeader: the verse starts with ordinary text. The poem has no
	// (remaining) header and the search ends.
	NoHeader HeaderCase = iota
	// HeaderOpen: the verse opens a bracket that does not close within it.
	// The whole verse is header.
	HeaderOpen
	// HeaderContinued: a header opened in an earlier verse is still open and
	// this verse has no brackets. The whole verse is header.
	HeaderContinued
	// HeaderEnclosed: the verse opens and closes the header bracket. The
	// bracketed span is dropped, the remainder (if any) is verse text.
	HeaderEnclosed
	// HeaderTail: a header from a previous verse closes here and nothing
	// follows the closing bracket.
	HeaderTail
	// HeaderTailText: a header from a previous verse closes here and verse
	// text follows the closing bracket.
	HeaderTailText
	// HeaderMalformed: the bracket structure matches none of the above.
	HeaderMalformed
)

var headerCaseNames = map[HeaderCase]string{
	NoHeader:        "no-header",
	HeaderOpen:      "header-open",
	HeaderContinued: "header-continued",
	HeaderEnclosed:  "header-enclosed",
	HeaderTail:      "header-tail",
	HeaderTailText:  "header-tail-text",
	HeaderMalformed: "malformed",
}

func (c HeaderCase) String() string {
	if name, ok := headerCaseNames[c]; ok {
		return name
	}
	return "unknown"
}

// ClassifyHeader decides the header case from the positions of the first
// opening and closing brackets of text. inHeader reports whether an earlier
// verse opened a header that has not closed yet.
func ClassifyHeader(text string, inHeader bool) HeaderCase {
	opensAtStart := strings.HasPrefix(text, "[")
	open := strings.Index(text, "[")
	closing := strings.Index(text, "]")

	switch {
	case opensAtStart:
		// A second opening bracket before the first closing one cannot be
		// a header boundary.
		if next := strings.Index(text[1:], "["); next >= 0 && (closing < 0 || next+1 < closing) {
			return HeaderMalformed
		}
		if closing < 0 {
			return HeaderOpen
		}
		return HeaderEnclosed

	case closing >= 0 && (open < 0 || closing < open):
		if strings.TrimSpace(text[closing+1:]) == "" {
			return HeaderTail
		}
		return HeaderTailText

	case inHeader && open < 0:
		return HeaderContinued

	default:
		return NoHeader
	}
}

// consumeHeader applies the header case to text. It returns the remaining
// text, whether the verse should be emitted, and whether the header search
// is over. It is only called while the search is active.
func consumeHeader(c HeaderCase, text string) (rest string, emit bool, done bool) {
	switch c {
	case HeaderOpen, HeaderContinued:
		return "", false, false
	case HeaderEnclosed, HeaderTailText:
		rest = strings.TrimSpace(text[strings.Index(text, "]")+1:])
		return rest, rest != "", true
	case HeaderTail:
		return "", false, true
	default:
		return text, true, true
	}
}
