package suggest

import "fmt"

// Candidate is one suggestion row. It is a closed set of variants:
// HeadingCandidate in heading mode, BlockHeadingCandidate and
// BlockParagraphCandidate in block mode.
type Candidate interface {
	kind() AnchorKind
	link() (title, path string)
}

// HeadingCandidate is a heading of the target offered in heading mode.
type HeadingCandidate struct {
	Text       string `json:"heading"`
	Level      int    `json:"level"`
	Line       int    `json:"line"`
	Title      string `json:"title"`
	TargetPath string `json:"path"`
}

// BlockRef is the part shared by both block-mode variants. GeneratedID
// equals ExistingID when the block already had one; IsNewID is decided
// once, at resolve time.
type BlockRef struct {
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	EndOffset   int    `json:"end_offset"`
	ExistingID  string `json:"existing_id,omitempty"`
	GeneratedID string `json:"id"`
	IsNewID     bool   `json:"is_new_id"`
	Title       string `json:"title"`
	TargetPath  string `json:"path"`
}

// BlockHeadingCandidate is a heading section offered in block mode. It
// commits as a heading link.
type BlockHeadingCandidate struct {
	BlockRef
	Level int `json:"level"`
}

// BlockParagraphCandidate is a paragraph offered in block mode. It
// commits as a block link, writing GeneratedID into the target first
// when IsNewID is set.
type BlockParagraphCandidate struct {
	BlockRef
}

func (HeadingCandidate) kind() AnchorKind        { return Heading }
func (BlockHeadingCandidate) kind() AnchorKind   { return Block }
func (BlockParagraphCandidate) kind() AnchorKind { return Block }

func (c HeadingCandidate) link() (string, string) { return c.Title, c.TargetPath }
func (b BlockRef) link() (string, string)         { return b.Title, b.TargetPath }

// KindOf returns the anchor kind a candidate belongs to.
func KindOf(c Candidate) AnchorKind {
	return c.kind()
}

func (c HeadingCandidate) String() string {
	return fmt.Sprintf("H%d %s (line %d)", c.Level, c.Text, c.Line)
}

func (c BlockHeadingCandidate) String() string {
	return fmt.Sprintf("H%d heading block (line %d) ^%s", c.Level, c.StartLine, c.GeneratedID)
}

func (c BlockParagraphCandidate) String() string {
	return fmt.Sprintf("paragraph (lines %d-%d) ^%s new=%t", c.StartLine, c.EndLine, c.GeneratedID, c.IsNewID)
}
