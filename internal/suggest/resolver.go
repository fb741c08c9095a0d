package suggest

import (
	"context"
	"fmt"

	"anchorlink/internal/blockid"
	"anchorlink/internal/markdown"
	"anchorlink/internal/trigger"
)

// Resolution is the outcome of resolving one trigger.
type Resolution struct {
	Target     string // vault path
	NoteTitle  string // frontmatter title of the target, may be empty
	Candidates []Candidate
}

// CandidateResolver turns a trigger match into the candidate list of its
// target. It never writes to the target.
type CandidateResolver struct {
	links   LinkResolver
	indexes IndexProvider
	ids     *blockid.Generator
}

func NewCandidateResolver(links LinkResolver, indexes IndexProvider, ids *blockid.Generator) *CandidateResolver {
	if ids == nil {
		ids = blockid.New(blockid.DefaultLength)
	}
	return &CandidateResolver{links: links, indexes: indexes, ids: ids}
}

// Resolve finds the target of match as seen from source and lists its
// anchors of match.Kind in document order.
func (r *CandidateResolver) Resolve(ctx context.Context, match trigger.Match, source string) (Resolution, error) {
	target, ok := r.links.ResolveLink(match.Path, source)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q from %s", ErrUnresolvableTarget, match.Path, source)
	}

	ix, err := r.indexes.Index(ctx, target)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %s: %w", ErrMissingIndex, target, err)
	}
	if ix.Empty() {
		return Resolution{}, fmt.Errorf("%w: %s", ErrMissingIndex, target)
	}

	res := Resolution{Target: target, NoteTitle: ix.Frontmatter.Title}
	switch match.Kind {
	case Heading:
		res.Candidates = headingCandidates(ix, match)
	case Block:
		res.Candidates = r.blockCandidates(ix, match)
	default:
		return Resolution{}, fmt.Errorf("suggest: unknown anchor kind %d", match.Kind)
	}

	if len(res.Candidates) == 0 {
		return Resolution{}, fmt.Errorf("%w: no %s anchors in %s", ErrMissingIndex, match.Kind, target)
	}
	return res, nil
}

func headingCandidates(ix *markdown.Index, match trigger.Match) []Candidate {
	out := make([]Candidate, 0, len(ix.Headings))
	for _, h := range ix.Headings {
		out = append(out, HeadingCandidate{
			Text:       h.Text,
			Level:      h.Level,
			Line:       h.Line,
			Title:      match.Title,
			TargetPath: match.Path,
		})
	}
	return out
}

func (r *CandidateResolver) blockCandidates(ix *markdown.Index, match trigger.Match) []Candidate {
	known := ix.IDs()
	levels := make(map[int]int, len(ix.Headings))
	for _, h := range ix.Headings {
		levels[h.Line] = h.Level
	}

	out := make([]Candidate, 0, len(ix.Sections))
	for _, s := range ix.Sections {
		b := BlockRef{
			StartLine:  s.StartLine,
			EndLine:    s.EndLine,
			EndOffset:  s.EndOffset,
			ExistingID: s.ID,
			Title:      match.Title,
			TargetPath: match.Path,
		}
		if s.ID != "" {
			b.GeneratedID = s.ID
		} else {
			b.GeneratedID = r.ids.GenerateAvoiding(known)
			b.IsNewID = true
			known[b.GeneratedID] = struct{}{}
		}

		switch s.Type {
		case markdown.SectionHeading:
			out = append(out, BlockHeadingCandidate{BlockRef: b, Level: levels[s.StartLine]})
		default:
			out = append(out, BlockParagraphCandidate{BlockRef: b})
		}
	}
	return out
}
