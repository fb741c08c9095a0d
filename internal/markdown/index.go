// Package markdown builds the structural index of a note: its headings and
// its addressable sections, with line and byte positions into the text.
package markdown

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

type SectionType string

const (
	SectionParagraph SectionType = "paragraph"
	SectionHeading   SectionType = "heading"
)

// Heading is an ATX heading. Line is 0-based.
type Heading struct {
	Text  string `json:"heading"`
	Level int    `json:"level"`
	Line  int    `json:"line"`
}

// Section is a top-level block that can carry a block identifier. Lines
// are 0-based and inclusive; offsets are byte offsets into the whole
// document, EndOffset points just past the last non-blank byte.
type Section struct {
	Type        SectionType `json:"type"`
	StartLine   int         `json:"start_line"`
	EndLine     int         `json:"end_line"`
	StartOffset int         `json:"start_offset"`
	EndOffset   int         `json:"end_offset"`
	ID          string      `json:"id,omitempty"`
}

// Index is the structural index of one document. It is never mutated
// after Parse returns.
type Index struct {
	Frontmatter Frontmatter `json:"frontmatter"`
	Headings    []Heading   `json:"headings"`
	Sections    []Section   `json:"sections"`
}

var (
	atxHeading = regexp.MustCompile(`^(#+) (.*)$`)
	trailingID = regexp.MustCompile(`(?:^|[ \t])\^([A-Za-z0-9-]+)$`)

	md = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

// Parse indexes source. Frontmatter is skipped; line numbers and offsets
// still refer to the full source.
func Parse(source []byte) *Index {
	fm, bodyStart := splitFrontmatter(source)

	body := source[bodyStart:]
	doc := md.Parser().Parse(text.NewReader(body))
	lines := newLineTable(source)

	ix := &Index{
		Frontmatter: fm,
		Headings:    []Heading{},
		Sections:    []Section{},
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Lines().Len() == 0 {
				continue
			}
			line := lines.lineOf(bodyStart + node.Lines().At(0).Start)
			raw := lines.text(source, line)
			headingText, level, ok := HeadingText(raw)
			if !ok || level != node.Level {
				// Setext headings and indented ATX headings cannot be
				// re-derived from their line.
				continue
			}
			start := lines.start(line)
			ix.Headings = append(ix.Headings, Heading{
				Text:  headingText,
				Level: level,
				Line:  line,
			})
			ix.Sections = append(ix.Sections, Section{
				Type:        SectionHeading,
				StartLine:   line,
				EndLine:     line,
				StartOffset: start,
				EndOffset:   start + len(strings.TrimRight(raw, " \t")),
				ID:          BlockID(raw),
			})

		case *ast.Paragraph:
			segs := node.Lines()
			if segs.Len() == 0 {
				continue
			}
			start := bodyStart + segs.At(0).Start
			end := bodyStart + segs.At(segs.Len()-1).Stop
			for end > start && isSpace(source[end-1]) {
				end--
			}
			if end == start {
				continue
			}
			endLine := lines.lineOf(end - 1)
			ix.Sections = append(ix.Sections, Section{
				Type:        SectionParagraph,
				StartLine:   lines.lineOf(start),
				EndLine:     endLine,
				StartOffset: start,
				EndOffset:   end,
				ID:          BlockID(string(source[lines.start(endLine):end])),
			})
		}
	}

	return ix
}

// HeadingText strips the leading `#` run and one space from an ATX
// heading line and returns the rest verbatim with the level. Only a
// trailing carriage return is dropped.
func HeadingText(line string) (string, int, bool) {
	m := atxHeading.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return "", 0, false
	}
	return m[2], len(m[1]), true
}

// BlockID returns the identifier carried by a trailing ` ^id`, if any.
func BlockID(line string) string {
	m := trailingID.FindStringSubmatch(strings.TrimRight(line, " \t\r"))
	if m == nil {
		return ""
	}
	return m[1]
}

// Empty reports whether the index has nothing to offer.
func (ix *Index) Empty() bool {
	return ix == nil || (len(ix.Headings) == 0 && len(ix.Sections) == 0)
}

// IDs returns the set of block identifiers already present.
func (ix *Index) IDs() map[string]struct{} {
	ids := make(map[string]struct{})
	if ix == nil {
		return ids
	}
	for _, s := range ix.Sections {
		if s.ID != "" {
			ids[s.ID] = struct{}{}
		}
	}
	return ids
}

// Lines splits text like the editor does: on "\n", keeping a trailing
// empty line.
func Lines(text string) []string {
	return strings.Split(text, "\n")
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// lineTable maps byte offsets to 0-based line numbers.
type lineTable []int

func newLineTable(source []byte) lineTable {
	starts := lineTable{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (t lineTable) lineOf(offset int) int {
	return sort.Search(len(t), func(i int) bool { return t[i] > offset }) - 1
}

func (t lineTable) start(line int) int {
	return t[line]
}

func (t lineTable) text(source []byte, line int) string {
	end := len(source)
	if line+1 < len(t) {
		end = t[line+1] - 1
	}
	return string(bytes.TrimRight(source[t[line]:end], "\r"))
}
