package ir

// types.go - record types passed between the pipeline stages.

// Psalm number bounds of the Psalter.
const (
	MinPsalm = 1
	MaxPsalm = 150
)

// RawVerse is one verse element in source order, before normalization.
type RawVerse struct {
	// Number is the verse number as found in the source ("1", "13a").
	Number string `json:"number"`

	// Text is the raw verse text, still carrying the leading verse number,
	// footnote markers, interlude cues, brackets and "/" line breaks.
	Text string `json:"text"`
}

// Verse is a normalized verse ready for pagination.
type Verse struct {
	// Number is the verse number as found in the source.
	Number string `json:"number"`

	// Lines are the display lines. Lines[0] starts with the superscript
	// verse number and a single space.
	Lines []string `json:"lines"`
}

// Assignment places one verse on a slide.
type Assignment struct {
	// Slide is the zero-based slide index. It never decreases.
	Slide int `json:"slide"`

	// NewSlide is true when this verse opens a fresh slide.
	NewSlide bool `json:"new_slide"`

	// Number is the verse number the lines came from.
	Number string `json:"number"`

	// Lines are the verse's display lines, unchanged.
	Lines []string `json:"lines"`

	// Indent is 0 or 1, alternating with the verse ordinal.
	Indent int `json:"indent"`

	// Final marks the last verse of the poem.
	Final bool `json:"final,omitempty"`
}

// Poem is one psalm's normalized content.
type Poem struct {
	Number int     `json:"number"`
	Verses []Verse `json:"verses"`
}

// LineCount returns the number of display lines across all verses.
func (p *Poem) LineCount() int {
	n := 0
	for _, v := range p.Verses {
		n += len(v.Lines)
	}
	return n
}
