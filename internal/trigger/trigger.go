// Package trigger recognizes a markdown link followed by an anchor marker
// directly before the cursor, e.g. `[Intro](<notes.md>)#`.
package trigger

import "regexp"

// Kind is the anchor kind requested by the marker.
type Kind int

const (
	Heading Kind = iota // marker `#`
	Block               // marker `^`
)

func (k Kind) String() string {
	switch k {
	case Heading:
		return "heading"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// Marker returns the character that selects k.
func (k Kind) Marker() string {
	if k == Block {
		return "^"
	}
	return "#"
}

// Groups: 1 title, 2 opening angle, 3 path, 4 closing angle, 5 marker.
// The angle brackets are matched independently of each other.
var pattern = regexp.MustCompile(`\[([^\]]*)\]\((<?)([^)>#^]+)(>?)\)([#^])$`)

// Match is the result of a successful Parse. Start and End are byte
// offsets into the parsed line; End is the cursor.
type Match struct {
	Text  string
	Title string
	Path  string
	Kind  Kind
	Start int
	End   int
}

// Parse inspects the text of the cursor line up to the cursor.
func Parse(prefix string) (Match, bool) {
	loc := pattern.FindStringSubmatchIndex(prefix)
	if loc == nil {
		return Match{}, false
	}

	kind := Heading
	if prefix[loc[10]:loc[11]] == "^" {
		kind = Block
	}

	return Match{
		Text:  prefix[loc[0]:loc[1]],
		Title: prefix[loc[2]:loc[3]],
		Path:  prefix[loc[6]:loc[7]],
		Kind:  kind,
		Start: loc[0],
		End:   loc[1],
	}, true
}
