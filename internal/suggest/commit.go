package suggest

import (
	"context"
	"fmt"

	"anchorlink/internal/markdown"
)

// Committer rewrites the trigger into a link once a candidate is chosen.
// The target is always settled before the source is touched.
type Committer struct {
	docs Documents
}

func NewCommitter(docs Documents) *Committer {
	return &Committer{docs: docs}
}

// Commit applies the i-th candidate of s. Any error leaves the source
// document unchanged.
func (c *Committer) Commit(ctx context.Context, s *Session, i int, sf Surface) error {
	cand, err := s.Candidate(ctx, i)
	if err != nil {
		return err
	}
	if KindOf(cand) != s.Kind {
		return ErrKindMismatch
	}
	if err := c.checkSpan(ctx, s); err != nil {
		return err
	}

	target, err := c.docs.Read(ctx, s.Target)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.Target, err)
	}

	var insert string
	switch cand := cand.(type) {
	case HeadingCandidate:
		text, err := headingAt(target, cand.Line)
		if err != nil {
			return err
		}
		insert = formatLink(cand.Title, cand.TargetPath, text)

	case BlockHeadingCandidate:
		text, err := headingAt(target, cand.StartLine)
		if err != nil {
			return err
		}
		insert = formatLink(cand.Title, cand.TargetPath, text)

	case BlockParagraphCandidate:
		if cand.IsNewID {
			if err := c.persistID(ctx, s.Target, target, cand.BlockRef); err != nil {
				return err
			}
		}
		insert = formatLink(cand.Title, cand.TargetPath, "^"+cand.GeneratedID)

	default:
		return fmt.Errorf("suggest: unknown candidate %T", cand)
	}

	if err := sf.ReplaceRange(ctx, s.Span, insert); err != nil {
		return fmt.Errorf("replace trigger in %s: %w", s.Source, err)
	}
	log.Infof("linked %s to %s", s.Source, insert)
	return nil
}

// checkSpan verifies the trigger text is still where the session saw it.
func (c *Committer) checkSpan(ctx context.Context, s *Session) error {
	text, err := c.docs.Read(ctx, s.Source)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.Source, err)
	}
	line, err := lineAt(markdown.Lines(text), s.Span.Line)
	if err != nil {
		return err
	}
	if s.Span.Start < 0 || s.Span.End > len(line) || line[s.Span.Start:s.Span.End] != s.Match.Text {
		return fmt.Errorf("%w: trigger moved in %s", ErrStaleCoordinate, s.Source)
	}
	return nil
}

func (c *Committer) persistID(ctx context.Context, path, text string, b BlockRef) error {
	if b.EndOffset < 0 || b.EndOffset > len(text) {
		return fmt.Errorf("%w: offset %d past end of %s", ErrStaleCoordinate, b.EndOffset, path)
	}
	updated := text[:b.EndOffset] + " ^" + b.GeneratedID + text[b.EndOffset:]
	if err := c.docs.Write(ctx, path, updated); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, path, err)
	}
	return nil
}

func headingAt(text string, n int) (string, error) {
	line, err := lineAt(markdown.Lines(text), n)
	if err != nil {
		return "", err
	}
	heading, _, ok := markdown.HeadingText(line)
	if !ok {
		return "", fmt.Errorf("%w: line %d is not a heading", ErrStaleCoordinate, n)
	}
	return heading, nil
}

func formatLink(title, path, anchor string) string {
	return fmt.Sprintf("[%s](<%s#%s>)", title, path, anchor)
}
