// Package resolver maps URIs, filesystem paths and link paths onto notes.
package resolver

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Note identifies a document in every form the server needs.
type Note struct {
	URI          protocol.DocumentUri
	AbsolutePath string
	Path         string // vault-relative, slash separated
}

// Notes is the set of known notes a link may resolve to.
type Notes interface {
	Exists(rel string) bool
	Notes() []string
}

type Resolver struct {
	root             string
	defaultExtension string
	notes            Notes
}

func New(root string, defaultExtension string, notes Notes) *Resolver {
	return &Resolver{
		root:             filepath.Clean(root),
		defaultExtension: defaultExtension,
		notes:            notes,
	}
}

// Resolve accepts a file URI, an absolute path or a vault path.
func (r *Resolver) Resolve(base string) (Note, error) {
	if strings.HasPrefix(base, "file:") {
		u, err := url.Parse(base)
		if err != nil {
			return Note{}, fmt.Errorf("failed to parse uri: %w", err)
		}
		return r.resolveAbsolute(filepath.FromSlash(u.Path))
	}
	if filepath.IsAbs(base) {
		return r.resolveAbsolute(base)
	}
	return r.resolveAbsolute(filepath.Join(r.root, filepath.FromSlash(base)))
}

func (r *Resolver) resolveAbsolute(absolutePath string) (Note, error) {
	cleaned := filepath.Clean(absolutePath)
	rel, err := filepath.Rel(r.root, cleaned)
	if err != nil {
		return Note{}, err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return Note{}, fmt.Errorf("%s is outside of %s", cleaned, r.root)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(cleaned)}
	return Note{
		URI:          protocol.DocumentUri(u.String()),
		AbsolutePath: cleaned,
		Path:         rel,
	}, nil
}

// ResolveLink finds the note a link path points at, seen from the note
// at from. The first match wins, tried in this order:
//  1. relative to the directory of from (unless the link starts with "/"),
//  2. relative to the vault root,
//  3. any note whose path ends in "/"+link; the shortest path wins, then
//     the lexically smallest.
//
// The default extension is appended when the link has none.
func (r *Resolver) ResolveLink(link string, from string) (string, bool) {
	link = strings.TrimSpace(link)
	if unescaped, err := url.PathUnescape(link); err == nil {
		link = unescaped
	}
	if link == "" || strings.HasSuffix(link, "/") {
		return "", false
	}
	if path.Ext(link) == "" {
		link += r.defaultExtension
	}

	rooted := strings.HasPrefix(link, "/")
	link = strings.TrimPrefix(link, "/")

	var candidates []string
	if !rooted {
		candidates = append(candidates, path.Join(path.Dir(from), link))
	}
	candidates = append(candidates, path.Clean(link))

	for _, c := range candidates {
		if escapes(c) {
			continue
		}
		if r.notes.Exists(c) {
			return c, true
		}
	}

	if rooted || escapes(path.Clean(link)) {
		return "", false
	}
	suffix := "/" + path.Clean(link)
	best := ""
	for _, n := range r.notes.Notes() {
		if !strings.HasSuffix(n, suffix) {
			continue
		}
		if best == "" || len(n) < len(best) || (len(n) == len(best) && n < best) {
			best = n
		}
	}
	return best, best != ""
}

func escapes(p string) bool {
	return p == ".." || strings.HasPrefix(p, "../")
}
