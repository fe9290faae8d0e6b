package odp

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
)

var (
	pageCountExpr = xpath.MustCompile(`count(//draw:page)`)
	pagesExpr     = xpath.MustCompile(`//draw:page`)
	titleExpr     = xpath.MustCompile(`.//draw:frame[@presentation:class='title']//text:p`)
	paragraphExpr = xpath.MustCompile(`.//draw:frame[@presentation:class='outline']//text:p`)
)

// Paragraph is one verse read back from a deck.
type Paragraph struct {
	Lines   []string `json:"lines"`
	Indent  int      `json:"indent"`
	Closing string   `json:"closing,omitempty"`
}

// Slide is one page of a deck.
type Slide struct {
	Title      string      `json:"title,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Summary describes a deck's contents.
type Summary struct {
	MimeType string  `json:"mimetype"`
	Slides   []Slide `json:"slides"`
}

// Title returns the first slide's title.
func (s *Summary) Title() string {
	if len(s.Slides) == 0 {
		return ""
	}
	return s.Slides[0].Title
}

// Paragraphs returns every paragraph in slide order.
func (s *Summary) Paragraphs() []Paragraph {
	var out []Paragraph
	for _, sl := range s.Slides {
		out = append(out, sl.Paragraphs...)
	}
	return out
}

// Inspect reads a deck file back.
func Inspect(path string) (*Summary, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer zr.Close()
	return inspect(&zr.Reader)
}

// InspectReader reads a deck from an in-memory archive.
func InspectReader(r io.ReaderAt, size int64) (*Summary, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	return inspect(zr)
}

func inspect(zr *zip.Reader) (*Summary, error) {
	if len(zr.File) == 0 || zr.File[0].Name != "mimetype" {
		return nil, errors.NewValidation("mimetype", "must be the first archive entry")
	}
	mimetype, err := readEntry(zr.File[0])
	if err != nil {
		return nil, err
	}

	var content *zip.File
	for _, f := range zr.File {
		if f.Name == "content.xml" {
			content = f
		}
	}
	if content == nil {
		return nil, errors.NewNotFound("archive entry", "content.xml")
	}
	rc, err := content.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open content.xml")
	}
	defer rc.Close()

	doc, err := xmlquery.Parse(rc)
	if err != nil {
		return nil, errors.Wrap(err, "parse content.xml")
	}

	s := &Summary{MimeType: strings.TrimSpace(string(mimetype))}
	for _, page := range xmlquery.QuerySelectorAll(doc, pagesExpr) {
		var slide Slide
		if t := xmlquery.QuerySelector(page, titleExpr); t != nil {
			slide.Title = strings.TrimSpace(t.InnerText())
		}
		for _, p := range xmlquery.QuerySelectorAll(page, paragraphExpr) {
			slide.Paragraphs = append(slide.Paragraphs, readParagraph(p))
		}
		s.Slides = append(s.Slides, slide)
	}

	count, ok := pageCountExpr.Evaluate(xmlquery.CreateXPathNavigator(doc)).(float64)
	if !ok || int(count) != len(s.Slides) {
		return nil, fmt.Errorf("content.xml: counted %v pages, read %d", count, len(s.Slides))
	}
	return s, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", f.Name)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func readParagraph(p *xmlquery.Node) Paragraph {
	para := Paragraph{Lines: []string{""}}
	if attr(p, "style-name") == styleVerseIndent {
		para.Indent = 1
	}

	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case xmlquery.TextNode, xmlquery.CharDataNode:
				para.Lines[len(para.Lines)-1] += c.Data
			case xmlquery.ElementNode:
				switch {
				case c.Data == "line-break":
					para.Lines = append(para.Lines, "")
				case c.Data == "span" && attr(c, "style-name") == styleClosing:
					para.Closing += c.InnerText()
				default:
					walk(c)
				}
			}
		}
	}
	walk(p)
	return para
}

func attr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
