package paginate

import (
	"github.com/FocuswithJustin/PsalmSlides/core/errors"
)

// Layout holds the typography and slide geometry used for height estimates.
type Layout struct {
	// FontSizePt is the body font size in points.
	FontSizePt float64 `yaml:"font_size_pt" json:"font_size_pt"`

	// LineSpacing is the line-spacing multiplier between lines of a verse.
	LineSpacing float64 `yaml:"line_spacing" json:"line_spacing"`

	// SpaceAfterPt is the extra space after each verse in points.
	SpaceAfterPt float64 `yaml:"space_after_pt" json:"space_after_pt"`

	// WrapColumns is the line length in characters beyond which a display
	// line is assumed to wrap.
	WrapColumns int `yaml:"wrap_columns" json:"wrap_columns"`

	// SlideHeightIn is the slide height in inches.
	SlideHeightIn float64 `yaml:"slide_height_in" json:"slide_height_in"`

	// TopMarginIn is the offset of the text body from the slide top in inches.
	// The band above the body holds the first slide's title, and the body
	// starts at the same offset on every slide.
	TopMarginIn float64 `yaml:"top_margin_in" json:"top_margin_in"`
}

// Font-specific base spacing of the presentation template and the extra
// spacing applied on top of it.
const (
	templateSpacing = 1.65
	extraSpacing    = 1.2
)

// titleBandIn is the default top margin: room for the title above the body.
const titleBandIn = 1.25

// DefaultLayout returns the layout tuned for the 4:3 presentation template.
func DefaultLayout() Layout {
	return Layout{
		FontSizePt:    23,
		LineSpacing:   templateSpacing * extraSpacing,
		SpaceAfterPt:  12,
		WrapColumns:   48,
		SlideHeightIn: 7.5,
		TopMarginIn:   titleBandIn,
	}
}

// Validate reports a *errors.ConfigurationError for a layout no verse can
// ever fit into.
func (l Layout) Validate() error {
	positive := []struct {
		field string
		value float64
	}{
		{"font_size_pt", l.FontSizePt},
		{"line_spacing", l.LineSpacing},
		{"space_after_pt", l.SpaceAfterPt},
		{"wrap_columns", float64(l.WrapColumns)},
		{"slide_height_in", l.SlideHeightIn},
		{"top_margin_in", l.TopMarginIn},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return errors.NewConfiguration(p.field, p.value, "must be positive")
		}
	}
	if l.SlideHeightIn <= l.TopMarginIn {
		return errors.NewConfiguration("slide_height_in", l.SlideHeightIn, "must exceed top_margin_in")
	}
	return nil
}

// Model holds the constants of the linear height estimate. They are
// configuration so the estimate can be recalibrated against a renderer.
type Model struct {
	// PointToPixel converts points to screen pixels.
	PointToPixel float64 `yaml:"point_to_pixel" json:"point_to_pixel"`

	// DPI converts pixels to inches.
	DPI float64 `yaml:"dpi" json:"dpi"`

	// WrapExtraLines is the number of extra rendered lines a wrapped display
	// line contributes.
	WrapExtraLines int `yaml:"wrap_extra_lines" json:"wrap_extra_lines"`
}

// DefaultModel returns the empirically calibrated model.
func DefaultModel() Model {
	return Model{
		PointToPixel:   1.33,
		DPI:            96,
		WrapExtraLines: 1,
	}
}

// Validate reports a *errors.ConfigurationError for non-positive constants.
func (m Model) Validate() error {
	if m.PointToPixel <= 0 {
		return errors.NewConfiguration("point_to_pixel", m.PointToPixel, "must be positive")
	}
	if m.DPI <= 0 {
		return errors.NewConfiguration("dpi", m.DPI, "must be positive")
	}
	if m.WrapExtraLines < 0 {
		return errors.NewConfiguration("wrap_extra_lines", float64(m.WrapExtraLines), "must not be negative")
	}
	return nil
}
