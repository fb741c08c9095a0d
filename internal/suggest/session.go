package suggest

import (
	"context"
	"sync"

	"anchorlink/internal/trigger"

	"github.com/google/uuid"
)

// AnchorKind selects heading or block anchors for a whole session.
type AnchorKind = trigger.Kind

const (
	Heading = trigger.Heading
	Block   = trigger.Block
)

// Span is the trigger text in the source document: one line, byte
// columns [Start, End).
type Span struct {
	Path  string `json:"path"`
	Line  int    `json:"line"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Token names a session across the completion boundary.
type Token string

// Session carries one trigger's candidates from resolve time to render
// and selection time. Its kind, span and candidates never change after
// delivery.
type Session struct {
	Token  Token
	Kind   AnchorKind
	Match  trigger.Match
	Source string // vault path of the document holding the trigger
	Target string // vault path the link resolved to
	Span   Span

	// NoteTitle is the frontmatter title of the target, if it has one.
	NoteTitle string

	ready      chan struct{}
	candidates []Candidate
}

func newSession(match trigger.Match, source, target string, line int) *Session {
	return &Session{
		Token:  Token(uuid.NewString()),
		Kind:   match.Kind,
		Match:  match,
		Source: source,
		Target: target,
		Span: Span{
			Path:  source,
			Line:  line,
			Start: match.Start,
			End:   match.End,
		},
		ready: make(chan struct{}),
	}
}

// deliver hands the candidates over. It must be called exactly once.
func (s *Session) deliver(candidates []Candidate) {
	s.candidates = candidates
	close(s.ready)
}

// Candidates waits for delivery and returns a copy of the candidate list.
func (s *Session) Candidates(ctx context.Context) ([]Candidate, error) {
	select {
	case <-s.ready:
		out := make([]Candidate, len(s.candidates))
		copy(out, s.candidates)
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Candidate waits for delivery and returns the i-th candidate.
func (s *Session) Candidate(ctx context.Context, i int) (Candidate, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if i < 0 || i >= len(s.candidates) {
		return nil, ErrNoCandidate
	}
	return s.candidates[i], nil
}

// Registry holds at most one pending session per editing surface.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Start makes s the pending session of surface and returns the session
// it replaced, if any.
func (r *Registry) Start(surface string, s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[surface]
	r.sessions[surface] = s
	return prev
}

// Clear drops the pending session of surface.
func (r *Registry) Clear(surface string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, surface)
}

// Lookup returns the pending session of surface if it has the token.
func (r *Registry) Lookup(surface string, token Token) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[surface]
	if !ok || s.Token != token {
		return nil, false
	}
	return s, true
}

// Take removes and returns the pending session of surface if it has the
// token. A session can be taken once.
func (r *Registry) Take(surface string, token Token) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[surface]
	if !ok || s.Token != token {
		return nil, ErrNoSession
	}
	delete(r.sessions, surface)
	return s, nil
}
