// Package suggest implements heading and block anchor completion for
// markdown links: trigger detection, candidate resolution, the hand-off
// of candidates to rendering and selection, and the commit that rewrites
// the link.
//
// The package owns no documents. Everything it reads or writes goes
// through the host interfaces below.
package suggest

import (
	"context"

	"anchorlink/internal/markdown"
)

// LinkResolver finds the note a link path points at, seen from another
// note. Paths are vault-relative.
type LinkResolver interface {
	ResolveLink(link string, from string) (string, bool)
}

// IndexProvider returns the structural index of a note.
type IndexProvider interface {
	Index(ctx context.Context, path string) (*markdown.Index, error)
}

// Documents reads and writes the current text of a note. A nil error
// from Write means the new text is persisted.
type Documents interface {
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path string, text string) error
}

// Host bundles what the Provider needs from its environment.
type Host interface {
	LinkResolver
	IndexProvider
	Documents
}

// Surface is the editing surface the trigger was typed on.
type Surface interface {
	ReplaceRange(ctx context.Context, span Span, text string) error
}
