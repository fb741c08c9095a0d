package suggest

import (
	"context"
	"errors"
	"fmt"

	"anchorlink/internal/blockid"
	"anchorlink/internal/trigger"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("anchorlink.suggest")

// Request describes the cursor a trigger is evaluated at.
type Request struct {
	Path   string // vault path of the active document, empty if there is none
	Line   int    // 0-based cursor line
	Prefix string // text of the cursor line up to the cursor
	InCode bool   // cursor sits in a code block of the active document
}

// Provider runs the whole pipeline for any number of editing surfaces.
type Provider struct {
	resolver  *CandidateResolver
	renderer  *Renderer
	committer *Committer
	sessions  *Registry
}

func NewProvider(host Host, ids *blockid.Generator) *Provider {
	return &Provider{
		resolver:  NewCandidateResolver(host, host, ids),
		renderer:  NewRenderer(host),
		committer: NewCommitter(host),
		sessions:  NewRegistry(),
	}
}

// Trigger evaluates req and, if it names a link with an anchor marker,
// starts a session on surface. Any pending session of surface is
// dropped, even when no new one starts.
func (p *Provider) Trigger(ctx context.Context, surface string, req Request) (*Session, error) {
	p.sessions.Clear(surface)

	if req.Path == "" {
		return nil, ErrNoActiveDocument
	}
	match, ok := trigger.Parse(req.Prefix)
	if !ok {
		return nil, ErrNoMatch
	}
	if req.InCode {
		return nil, ErrInCode
	}

	res, err := p.resolver.Resolve(ctx, match, req.Path)
	if err != nil {
		return nil, err
	}

	s := newSession(match, req.Path, res.Target, req.Line)
	s.NoteTitle = res.NoteTitle
	s.deliver(res.Candidates)
	p.sessions.Start(surface, s)

	log.Debugf("session %s: %d %s candidates from %s", s.Token, len(res.Candidates), s.Kind, s.Target)
	return s, nil
}

// Session returns the pending session of surface if token is current.
func (p *Provider) Session(surface string, token Token) (*Session, bool) {
	return p.sessions.Lookup(surface, token)
}

// Rows renders every candidate of the pending session.
func (p *Provider) Rows(ctx context.Context, surface string, token Token) ([]Row, error) {
	s, ok := p.sessions.Lookup(surface, token)
	if !ok {
		return nil, ErrNoSession
	}
	return p.renderer.RenderAll(ctx, s)
}

// Render renders one candidate of the pending session.
func (p *Provider) Render(ctx context.Context, surface string, token Token, i int) (Row, error) {
	s, ok := p.sessions.Lookup(surface, token)
	if !ok {
		return Row{}, ErrNoSession
	}
	return p.renderer.Render(ctx, s, i)
}

// Commit consumes the pending session and applies its i-th candidate.
// A token can be committed once; a superseded token fails with
// ErrNoSession.
func (p *Provider) Commit(ctx context.Context, surface string, token Token, i int, sf Surface) error {
	s, err := p.sessions.Take(surface, token)
	if err != nil {
		return err
	}
	if err := p.committer.Commit(ctx, s, i, sf); err != nil {
		return fmt.Errorf("commit %s: %w", s.Token, err)
	}
	return nil
}

// Quiet reports whether err only means "nothing to suggest".
func Quiet(err error) bool {
	for _, q := range []error{ErrNoActiveDocument, ErrNoMatch, ErrInCode, ErrUnresolvableTarget, ErrMissingIndex, ErrNoSession} {
		if errors.Is(err, q) {
			return true
		}
	}
	return false
}
