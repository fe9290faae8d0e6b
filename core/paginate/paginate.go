// Package paginate decides which verses share a slide.
//
// Heights are estimated with a linear model of the layout, never by
// measuring rendered text: every display line costs one line unit, and a line
// longer than the wrap width is assumed to wrap into exactly two lines.
// Decisions depend only on the current verse and the running height of the
// current slide.
package paginate

import (
	"unicode/utf8"

	"github.com/FocuswithJustin/PsalmSlides/core/ir"
)

// LineUnit returns the height in inches of one line rendered with the given
// spacing multiplier and trailing space in points.
func (m Model) LineUnit(l Layout, spacing, afterPt float64) float64 {
	return (l.FontSizePt*spacing + afterPt) * m.PointToPixel / m.DPI
}

// VisualLines returns the number of rendered lines of a verse.
func (m Model) VisualLines(lines []string, wrapColumns int) int {
	n := len(lines)
	for _, line := range lines {
		if utf8.RuneCountInString(line) > wrapColumns {
			n += m.WrapExtraLines
		}
	}
	return n
}

// VerseHeight returns the estimated height in inches of a verse block: the
// inner lines at the configured spacing, plus one single-spaced line carrying
// the space after the verse.
func (m Model) VerseHeight(l Layout, lines []string) float64 {
	visual := m.VisualLines(lines, l.WrapColumns)
	return float64(visual-1)*m.LineUnit(l, l.LineSpacing, 0) + m.LineUnit(l, 1.0, l.SpaceAfterPt)
}

// State is the running pagination state of one poem.
type State struct {
	// Slide is the index of the current slide, -1 before the first verse.
	Slide int

	// HeightIn is the accumulated height of the current slide in inches.
	HeightIn float64
}

// Paginator places verses one at a time.
type Paginator struct {
	layout Layout
	model  Model
	state  State
	count  int
}

// NewPaginator validates the configuration and returns a paginator for one
// poem.
func NewPaginator(layout Layout, model Model) (*Paginator, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &Paginator{
		layout: layout,
		model:  model,
		state:  State{Slide: -1},
	}, nil
}

// State returns the current running state.
func (p *Paginator) State() State {
	return p.state
}

// Place assigns the next verse. Indentation alternates with the verse
// ordinal; Final is left for the caller, who knows where the poem ends.
func (p *Paginator) Place(v ir.Verse) ir.Assignment {
	height := p.model.VerseHeight(p.layout, v.Lines)

	newSlide := p.state.Slide < 0 ||
		p.layout.TopMarginIn+p.state.HeightIn+height > p.layout.SlideHeightIn
	if newSlide {
		p.state.Slide++
		p.state.HeightIn = height
	} else {
		p.state.HeightIn += height
	}

	a := ir.Assignment{
		Slide:    p.state.Slide,
		NewSlide: newSlide,
		Number:   v.Number,
		Lines:    v.Lines,
		Indent:   p.count % 2,
	}
	p.count++
	return a
}

// Paginate assigns every verse of a poem to a slide. The last assignment is
// marked Final.
func Paginate(verses []ir.Verse, layout Layout, model Model) ([]ir.Assignment, error) {
	p, err := NewPaginator(layout, model)
	if err != nil {
		return nil, err
	}

	out := make([]ir.Assignment, 0, len(verses))
	for _, v := range verses {
		out = append(out, p.Place(v))
	}
	if len(out) > 0 {
		out[len(out)-1].Final = true
	}
	return out, nil
}

// Slides groups assignments by slide, preserving order.
func Slides(assignments []ir.Assignment) [][]ir.Assignment {
	var slides [][]ir.Assignment
	for _, a := range assignments {
		if a.NewSlide || len(slides) == 0 {
			slides = append(slides, nil)
		}
		slides[len(slides)-1] = append(slides[len(slides)-1], a)
	}
	return slides
}
