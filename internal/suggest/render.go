package suggest

import (
	"context"
	"fmt"
	"strings"

	"anchorlink/internal/markdown"
)

// Row is what the editor shows for one candidate.
type Row struct {
	Index int    // position in the session's candidate list
	Text  string // heading text or paragraph text
	Badge string // "H2" or ">id"
	Level int    // heading level, 0 for paragraphs
	ID    string // block id, empty in heading mode
}

// Renderer produces rows. Heading mode rows come from the snapshot;
// block mode rows re-read the target so they show its current text.
type Renderer struct {
	docs Documents
}

func NewRenderer(docs Documents) *Renderer {
	return &Renderer{docs: docs}
}

// Render produces the row of the i-th candidate of s.
func (r *Renderer) Render(ctx context.Context, s *Session, i int) (Row, error) {
	c, err := s.Candidate(ctx, i)
	if err != nil {
		return Row{}, err
	}
	var lines []string
	if s.Kind == Block {
		text, err := r.docs.Read(ctx, s.Target)
		if err != nil {
			return Row{}, fmt.Errorf("read %s: %w", s.Target, err)
		}
		lines = markdown.Lines(text)
	}
	row, err := renderCandidate(s.Kind, c, lines)
	row.Index = i
	return row, err
}

// RenderAll renders every candidate of s, reading the target at most
// once. Rows whose coordinates went stale are left out.
func (r *Renderer) RenderAll(ctx context.Context, s *Session) ([]Row, error) {
	candidates, err := s.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	var lines []string
	if s.Kind == Block {
		text, err := r.docs.Read(ctx, s.Target)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.Target, err)
		}
		lines = markdown.Lines(text)
	}

	rows := make([]Row, 0, len(candidates))
	for i, c := range candidates {
		row, err := renderCandidate(s.Kind, c, lines)
		if err != nil {
			log.Debugf("dropping row %d of %s: %v", i, s.Token, err)
			continue
		}
		row.Index = i
		rows = append(rows, row)
	}
	return rows, nil
}

func renderCandidate(kind AnchorKind, c Candidate, lines []string) (Row, error) {
	if KindOf(c) != kind {
		return Row{}, ErrKindMismatch
	}
	switch c := c.(type) {
	case HeadingCandidate:
		return Row{Text: c.Text, Badge: fmt.Sprintf("H%d", c.Level), Level: c.Level}, nil

	case BlockHeadingCandidate:
		line, err := lineAt(lines, c.StartLine)
		if err != nil {
			return Row{}, err
		}
		text, level, ok := markdown.HeadingText(strings.TrimSpace(line))
		if !ok {
			return Row{}, fmt.Errorf("%w: line %d is not a heading", ErrStaleCoordinate, c.StartLine)
		}
		return Row{Text: text, Badge: fmt.Sprintf("H%d", level), Level: level, ID: c.GeneratedID}, nil

	case BlockParagraphCandidate:
		if c.StartLine < 0 || c.EndLine < c.StartLine || c.EndLine >= len(lines) {
			return Row{}, fmt.Errorf("%w: lines %d-%d of %d", ErrStaleCoordinate, c.StartLine, c.EndLine, len(lines))
		}
		text := strings.TrimSpace(strings.Join(lines[c.StartLine:c.EndLine+1], "\n"))
		return Row{Text: text, Badge: ">" + c.GeneratedID, ID: c.GeneratedID}, nil
	}
	return Row{}, fmt.Errorf("suggest: unknown candidate %T", c)
}

func lineAt(lines []string, n int) (string, error) {
	if n < 0 || n >= len(lines) {
		return "", fmt.Errorf("%w: line %d of %d", ErrStaleCoordinate, n, len(lines))
	}
	return strings.TrimRight(lines[n], "\r"), nil
}
