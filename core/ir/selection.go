package ir

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// selectionGrammar is the participle grammar for psalm selections.
// Examples: "23", "1-150", "1-10, 23, 119"
//
//nolint:govet // participle grammar tags are not standard struct tags
type selectionGrammar struct {
	Items []*selectionItem `parser:"@@ ( \",\" @@ )*"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type selectionItem struct {
	From int  `parser:"@Int"`
	To   *int `parser:"( \"-\" @Int )?"`
}

// selectionLexer defines the lexer for psalm selections.
var selectionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[,\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// selectionParser is the participle parser for psalm selections.
var selectionParser = participle.MustBuild[selectionGrammar](
	participle.Lexer(selectionLexer),
	participle.Elide("Whitespace"),
)

// Selection is an ascending list of distinct psalm numbers.
type Selection []int

// ParseSelection parses a psalm selection expression.
// Supported forms:
//   - "23" (single psalm)
//   - "1-150" (inclusive range)
//   - "1-10, 23, 119" (comma separated mix)
//
// Numbers must lie within MinPsalm..MaxPsalm and ranges must ascend.
// Duplicates are collapsed and the result is sorted.
func ParseSelection(s string) (Selection, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty selection")
	}

	parsed, err := selectionParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("invalid selection %q: %w", s, err)
	}

	seen := make(map[int]bool)
	var out Selection
	for _, item := range parsed.Items {
		from, to := item.From, item.From
		if item.To != nil {
			to = *item.To
		}
		if from > to {
			return nil, fmt.Errorf("invalid selection %q: descending range %d-%d", s, from, to)
		}
		if from < MinPsalm || to > MaxPsalm {
			return nil, fmt.Errorf("invalid selection %q: psalms are numbered %d-%d", s, MinPsalm, MaxPsalm)
		}
		for n := from; n <= to; n++ {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}

	sort.Ints(out)
	return out, nil
}

// All returns the selection of every psalm.
func All() Selection {
	out := make(Selection, 0, MaxPsalm-MinPsalm+1)
	for n := MinPsalm; n <= MaxPsalm; n++ {
		out = append(out, n)
	}
	return out
}

// String renders the selection in compact range form, e.g. "1-3,7".
func (s Selection) String() string {
	var sb strings.Builder
	for i := 0; i < len(s); {
		j := i
		for j+1 < len(s) && s[j+1] == s[j]+1 {
			j++
		}
		if sb.Len() > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.Itoa(s[i]))
		if j > i {
			sb.WriteString("-")
			sb.WriteString(strconv.Itoa(s[j]))
		}
		i = j + 1
	}
	return sb.String()
}
