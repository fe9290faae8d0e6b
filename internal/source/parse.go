package source

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/core/ir"
	"github.com/FocuswithJustin/PsalmSlides/core/superscript"
)

// Class names of the verse container and of a single verse block.
const (
	containerClassA = "biblehtmlcontent"
	containerClassB = "verses"
	verseClass      = "v"
)

// Parse extracts the raw verses of one psalm page. Verse blocks that do not
// start with a digit carry only headings and are skipped.
func Parse(poem int, r io.Reader) ([]ir.RawVerse, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.NewFetch(poem, "", "unparseable HTML", err)
	}

	container := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" &&
			hasClass(n, containerClassA) && hasClass(n, containerClassB)
	})
	if container == nil {
		return nil, errors.NewFetch(poem, "", "verse container not found", nil)
	}

	var verses []ir.RawVerse
	for _, div := range findAll(container, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && hasClass(n, verseClass)
	}) {
		text := norm.NFC.String(collapseSpace(textContent(div)))
		if text == "" {
			continue
		}
		if first, _ := utf8.DecodeRuneInString(text); !unicode.IsDigit(first) {
			continue
		}
		verses = append(verses, ir.RawVerse{
			Number: verseNumber(text),
			Text:   text,
		})
	}
	return verses, nil
}

// verseNumber returns the leading digits of text plus an optional letter
// suffix that has a superscript form ("13a"). The suffix only counts when it
// is not the start of a word.
func verseNumber(text string) string {
	i := 0
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if suffix, size := utf8.DecodeRuneInString(text[i:]); unicode.IsLetter(suffix) && superscript.Supported(suffix) {
		next, _ := utf8.DecodeRuneInString(text[i+size:])
		if i+size == len(text) || !unicode.IsLower(next) {
			i += size
		}
	}
	return text[:i]
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns matching descendants of n without descending into matches.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if match(c) {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func textContent(n *html.Node) string {
	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			out.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			out.WriteString(" ")
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
