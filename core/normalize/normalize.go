// Package normalize turns raw verse markup into display lines.
//
// The markup is specific to the Einheitsübersetzung psalm pages: a leading
// verse number, trailing footnote digits and interlude cues such as [Sela],
// "/" line breaks, bracketed headers that may span several verses, and the
// acrostic letters of Psalm 119. The normalizer is not a general text
// cleaner.
//
// A Normalizer carries per-poem state between verses and must not be shared
// across poems or goroutines.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/core/ir"
	"github.com/FocuswithJustin/PsalmSlides/core/superscript"
)

// trailingPasses bounds the trailing-annotation loop; a verse can end in a
// line break, a footnote and an interlude cue at once.
const trailingPasses = 3

// Options tunes the corpus-specific parts of the normalizer.
type Options struct {
	// AcrosticPoem is the psalm whose acrostic letters move to the start of
	// the following verse. Zero disables the carry.
	AcrosticPoem int `yaml:"acrostic_poem"`

	// InterludeCues are the bracketed liturgical cues stripped from the end
	// of a verse, without brackets (e.g. "Sela").
	InterludeCues []string `yaml:"interlude_cues"`
}

// DefaultOptions returns the options for the Einheitsübersetzung psalter.
func DefaultOptions() Options {
	return Options{
		AcrosticPoem:  119,
		InterludeCues: []string{"Sela"},
	}
}

// State is the per-poem state threaded from verse to verse.
type State struct {
	// SearchingForHeader is true until the poem's header has been consumed.
	SearchingForHeader bool

	// InHeader is true while a header opened in an earlier verse is still
	// waiting for its closing bracket.
	InHeader bool

	// CarriedLetter is the acrostic letter postponed from the previous verse.
	CarriedLetter string
}

// NewState returns the state at the start of a poem.
func NewState() State {
	return State{SearchingForHeader: true}
}

var (
	flattenPattern  = regexp.MustCompile(`\(([^()]*)\)`)
	acrosticPattern = regexp.MustCompile(`\(([^()]*)\)$`)
)

// Normalizer processes the verses of one poem in source order.
type Normalizer struct {
	poem     int
	opts     Options
	state    State
	seen     int
	trailing *regexp.Regexp
}

// New creates a normalizer for the given psalm number.
func New(poem int, opts Options) *Normalizer {
	alternatives := []string{`/`, `\d+`}
	if len(opts.InterludeCues) > 0 {
		cues := make([]string, len(opts.InterludeCues))
		for i, cue := range opts.InterludeCues {
			cues[i] = regexp.QuoteMeta(cue)
		}
		alternatives = append(alternatives, `\[(?:`+strings.Join(cues, "|")+`)\]`)
	}

	return &Normalizer{
		poem:     poem,
		opts:     opts,
		state:    NewState(),
		trailing: regexp.MustCompile(`(?:` + strings.Join(alternatives, "|") + `)$`),
	}
}

// State returns a copy of the current per-poem state.
func (n *Normalizer) State() State {
	return n.state
}

// Normalize processes the next verse. It returns false when the verse was
// consumed entirely by the header and nothing should be emitted.
func (n *Normalizer) Normalize(rv ir.RawVerse) (ir.Verse, bool, error) {
	ordinal := n.seen
	n.seen++

	text := strings.TrimSpace(rv.Text)
	text = strings.TrimSpace(strings.TrimPrefix(text, rv.Number))

	text = n.stripTrailing(text)
	text = normalizeDashes(text)

	prefix := ""
	if n.opts.AcrosticPoem != 0 && n.poem == n.opts.AcrosticPoem && ordinal > 0 {
		prefix, text = n.carryAcrostic(text)
	}
	text = prefix + flattenParentheticals(text)

	if n.state.SearchingForHeader {
		c := ClassifyHeader(text, n.state.InHeader)
		if c == HeaderMalformed {
			return ir.Verse{}, false, errors.NewMalformedVerse(n.poem, rv.Number, rv.Text, "unbalanced header brackets")
		}
		rest, emit, done := consumeHeader(c, text)
		n.state.InHeader = !done
		if done {
			n.state.SearchingForHeader = false
		}
		if !emit {
			return ir.Verse{}, false, nil
		}
		text = rest
	}

	text = strings.NewReplacer("[", "", "]", "").Replace(text)

	lines := splitLines(text)

	if rv.Number == "" {
		return ir.Verse{}, false, errors.NewMalformedVerse(n.poem, rv.Number, rv.Text, "missing verse number")
	}
	number, err := superscript.Encode(rv.Number)
	if err != nil {
		return ir.Verse{}, false, &errors.MalformedVerseError{
			Poem:   n.poem,
			Verse:  rv.Number,
			Text:   rv.Text,
			Reason: "verse number cannot be encoded",
			Err:    err,
		}
	}
	lines[0] = number + " " + lines[0]

	return ir.Verse{Number: rv.Number, Lines: lines}, true, nil
}

// stripTrailing removes stacked trailing line breaks, footnote digits and
// interlude cues.
func (n *Normalizer) stripTrailing(text string) string {
	for i := 0; i < trailingPasses; i++ {
		text = strings.TrimSpace(n.trailing.ReplaceAllString(text, ""))
	}
	return text
}

// carryAcrostic prepends the letter carried from the previous verse and
// moves a trailing parenthesized letter into the carry state. It returns the
// prefix it added separately so flattening can skip it.
func (n *Normalizer) carryAcrostic(text string) (prefix, rest string) {
	if n.state.CarriedLetter != "" {
		prefix = "(" + n.state.CarriedLetter + ") "
	}
	full := prefix + text

	loc := acrosticPattern.FindStringSubmatchIndex(full)
	if loc == nil || loc[0] < len(prefix) {
		n.state.CarriedLetter = ""
		return prefix, text
	}

	n.state.CarriedLetter = strings.TrimSpace(full[loc[2]:loc[3]])
	return prefix, strings.TrimSpace(full[len(prefix):loc[0]])
}

// normalizeDashes replaces every hyphen that touches no letter with an em
// dash. Word-internal hyphens are kept.
func normalizeDashes(text string) string {
	runes := []rune(text)
	for i, r := range runes {
		if r != '-' {
			continue
		}
		left := i > 0 && unicode.IsLetter(runes[i-1])
		right := i+1 < len(runes) && unicode.IsLetter(runes[i+1])
		if !left && !right {
			runes[i] = '—'
		}
	}
	return string(runes)
}

// flattenParentheticals drops the parentheses around asides, keeping the
// inner text. Nested asides are flattened from the inside out.
func flattenParentheticals(text string) string {
	for {
		flat := flattenPattern.ReplaceAllString(text, "$1")
		if flat == text {
			return flat
		}
		text = flat
	}
}

// splitLines splits on "/" and trims each segment. Every segment is a line,
// empty ones included, so a doubled break yields a blank line.
func splitLines(text string) []string {
	lines := strings.Split(text, "/")
	for i, seg := range lines {
		lines[i] = strings.TrimSpace(seg)
	}
	return lines
}

// NormalizeAll runs a fresh normalizer over the raw verses of one poem.
func NormalizeAll(poem int, opts Options, raws []ir.RawVerse) ([]ir.Verse, error) {
	n := New(poem, opts)
	verses := make([]ir.Verse, 0, len(raws))
	for _, rv := range raws {
		v, ok, err := n.Normalize(rv)
		if err != nil {
			return nil, err
		}
		if ok {
			verses = append(verses, v)
		}
	}
	return verses, nil
}
