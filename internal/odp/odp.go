// Package odp writes paginated psalms as OpenDocument presentations.
//
// A deck is a zip archive holding the mimetype (stored, first), the
// manifest, styles.xml and content.xml. The first slide carries the title;
// every verse is one paragraph whose lines are separated by line breaks.
package odp

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/core/ir"
	"github.com/FocuswithJustin/PsalmSlides/core/paginate"
)

// MimeType is the media type of an OpenDocument presentation.
const MimeType = "application/vnd.oasis.opendocument.presentation"

// Defaults for Options.
const (
	DefaultPrefix      = "Psalm"
	DefaultTitleFormat = "Psalm %d"
	DefaultClosing     = " — Halleluja!"
	DefaultSlideWidth  = 10.0
	DefaultIndentCm    = 2.0
)

// Injectable for tests.
var (
	osCreateTemp = os.CreateTemp
	osRename     = os.Rename
)

// Options control deck rendering.
type Options struct {
	// Prefix starts every file name: Prefix_007.odp.
	Prefix string `yaml:"prefix" json:"prefix"`

	// TitleFormat renders the first slide's title from the poem number.
	TitleFormat string `yaml:"title_format" json:"title_format"`

	// Closing is appended in italics to the final verse.
	Closing string `yaml:"closing" json:"closing"`

	// SlideWidthIn is the slide width in inches. The height comes from the
	// layout.
	SlideWidthIn float64 `yaml:"slide_width_in" json:"slide_width_in"`

	// IndentCm is the left indent of indent level 1 paragraphs.
	IndentCm float64 `yaml:"indent_cm" json:"indent_cm"`
}

// DefaultOptions returns the standard deck options.
func DefaultOptions() Options {
	return Options{
		Prefix:       DefaultPrefix,
		TitleFormat:  DefaultTitleFormat,
		Closing:      DefaultClosing,
		SlideWidthIn: DefaultSlideWidth,
		IndentCm:     DefaultIndentCm,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Prefix == "" {
		o.Prefix = d.Prefix
	}
	if o.TitleFormat == "" {
		o.TitleFormat = d.TitleFormat
	}
	if o.SlideWidthIn <= 0 {
		o.SlideWidthIn = d.SlideWidthIn
	}
	if o.IndentCm <= 0 {
		o.IndentCm = d.IndentCm
	}
	return o
}

// FileName returns the deck name of a poem. The fixed-width number keeps
// names sorted.
func (o Options) FileName(poem int) string {
	return fmt.Sprintf("%s_%03d.odp", o.withDefaults().Prefix, poem)
}

// Writer renders decks into a directory.
type Writer struct {
	dir    string
	layout paginate.Layout
	opts   Options
}

// NewWriter returns a writer for dir. Empty options fall back to defaults;
// Closing is kept as given so it can be disabled.
func NewWriter(dir string, layout paginate.Layout, opts Options) *Writer {
	return &Writer{dir: dir, layout: layout, opts: opts.withDefaults()}
}

// Path returns where the deck of poem is written.
func (w *Writer) Path(poem int) string {
	return filepath.Join(w.dir, w.opts.FileName(poem))
}

// Write renders the assignments of one poem and atomically replaces its
// deck. It returns the file path.
func (w *Writer) Write(poem int, assignments []ir.Assignment) (string, error) {
	if len(assignments) == 0 {
		return "", errors.NewValidation("assignments", fmt.Sprintf("psalm %d has no verses", poem))
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", errors.NewIO("mkdir", w.dir, err)
	}

	path := w.Path(poem)
	tmp, err := osCreateTemp(w.dir, ".deck-*")
	if err != nil {
		return "", errors.NewIO("create", w.dir, err)
	}
	tmpPath := tmp.Name()

	if err := Render(tmp, poem, assignments, w.layout, w.opts); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", errors.NewIO("close", tmpPath, err)
	}
	if err := osRename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", errors.NewIO("rename", path, err)
	}
	return path, nil
}

// Render writes the deck archive to out.
func Render(out io.Writer, poem int, assignments []ir.Assignment, layout paginate.Layout, opts Options) error {
	opts = opts.withDefaults()
	zw := zip.NewWriter(out)

	// mimetype (must be first, uncompressed)
	mw, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return errors.Wrap(err, "write mimetype")
	}
	if _, err := mw.Write([]byte(MimeType)); err != nil {
		return errors.Wrap(err, "write mimetype")
	}

	parts := []struct {
		name string
		body []byte
	}{
		{"META-INF/manifest.xml", []byte(manifestXML)},
		{"styles.xml", stylesXML(layout, opts)},
		{"content.xml", contentXML(poem, assignments, layout, opts)},
	}
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return errors.Wrapf(err, "write %s", p.name)
		}
		if _, err := fw.Write(p.body); err != nil {
			return errors.Wrapf(err, "write %s", p.name)
		}
	}

	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "finish archive")
	}
	return nil
}

// needsClosing reports whether the closing run must still be appended to
// the final verse.
func needsClosing(lines []string, closing string) bool {
	trimmed := strings.TrimSpace(closing)
	if trimmed == "" {
		return false
	}
	if len(lines) == 0 {
		return true
	}
	return !strings.HasSuffix(strings.TrimRight(lines[len(lines)-1], " "), trimmed)
}

func contentXML(poem int, assignments []ir.Assignment, layout paginate.Layout, opts Options) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<office:document-content ` + namespaces + ` office:version="1.2">
<office:automatic-styles>
`)
	fmt.Fprintf(&buf, `  <style:style style:name="%s" style:family="paragraph">
    <style:paragraph-properties fo:margin-left="0cm" fo:margin-bottom="%gpt" fo:line-height="%g%%"/>
  </style:style>
`, styleVerse, layout.SpaceAfterPt, layout.LineSpacing*100)
	fmt.Fprintf(&buf, `  <style:style style:name="%s" style:family="paragraph">
    <style:paragraph-properties fo:margin-left="%gcm" fo:margin-bottom="%gpt" fo:line-height="%g%%"/>
  </style:style>
`, styleVerseIndent, opts.IndentCm, layout.SpaceAfterPt, layout.LineSpacing*100)
	fmt.Fprintf(&buf, `  <style:style style:name="%s" style:family="text">
    <style:text-properties fo:font-style="italic"/>
  </style:style>
</office:automatic-styles>
<office:body>
<office:presentation>
`, styleClosing)

	for i, slide := range paginate.Slides(assignments) {
		fmt.Fprintf(&buf, `<draw:page draw:name="page%d" draw:master-page-name="%s">
`, i+1, masterPage)
		if i == 0 {
			fmt.Fprintf(&buf, `<draw:frame presentation:class="title" svg:x="0.5in" svg:y="0in" svg:width="%gin" svg:height="%gin"><draw:text-box><text:p text:style-name="%s">%s</text:p></draw:text-box></draw:frame>
`, opts.SlideWidthIn-1, layout.TopMarginIn, styleTitle, escapeXML(fmt.Sprintf(opts.TitleFormat, poem)))
		}
		fmt.Fprintf(&buf, `<draw:frame presentation:class="outline" svg:x="0.5in" svg:y="%gin" svg:width="%gin" svg:height="%gin"><draw:text-box>
`, layout.TopMarginIn, opts.SlideWidthIn-1, layout.SlideHeightIn-layout.TopMarginIn)
		for _, a := range slide {
			writeVerse(&buf, a, opts)
		}
		buf.WriteString(`</draw:text-box></draw:frame>
</draw:page>
`)
	}

	buf.WriteString(`</office:presentation>
</office:body>
</office:document-content>`)
	return buf.Bytes()
}

func writeVerse(buf *bytes.Buffer, a ir.Assignment, opts Options) {
	style := styleVerse
	if a.Indent == 1 {
		style = styleVerseIndent
	}
	fmt.Fprintf(buf, `<text:p text:style-name="%s"><text:span>`, style)
	for i, line := range a.Lines {
		if i > 0 {
			buf.WriteString(`<text:line-break/>`)
		}
		buf.WriteString(escapeXML(line))
	}
	buf.WriteString(`</text:span>`)
	if a.Final && needsClosing(a.Lines, opts.Closing) {
		fmt.Fprintf(buf, `<text:span text:style-name="%s">%s</text:span>`, styleClosing, escapeXML(opts.Closing))
	}
	buf.WriteString("</text:p>\n")
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
