// Package workspace joins the vault on disk, the documents open in the
// client and the index cache into the host the suggest pipeline runs on.
package workspace

import (
	"context"
	"fmt"
	"sync"

	"anchorlink/internal/cache"
	"anchorlink/internal/markdown"
	"anchorlink/internal/resolver"
	"anchorlink/internal/vault"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("anchorlink.workspace")

// Overlay exposes the live text of documents open in the client.
type Overlay interface {
	Text(path string) (string, bool)
}

// Editor changes a document the client has open. It returns once the
// client confirmed the change.
type Editor interface {
	ReplaceDocument(ctx context.Context, path, oldText, newText string) error
}

type Workspace struct {
	vault *vault.Vault
	links *resolver.Resolver
	cache *cache.IndexCache

	mu      sync.RWMutex
	overlay Overlay
	editor  Editor
}

func New(v *vault.Vault, links *resolver.Resolver, c *cache.IndexCache) *Workspace {
	if c == nil {
		c = cache.New(nil)
	}
	return &Workspace{vault: v, links: links, cache: c}
}

// Attach routes reads and writes of open documents through the client.
func (w *Workspace) Attach(overlay Overlay, editor Editor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.overlay = overlay
	w.editor = editor
}

func (w *Workspace) Vault() *vault.Vault {
	return w.vault
}

func (w *Workspace) Resolver() *resolver.Resolver {
	return w.links
}

func (w *Workspace) Cache() *cache.IndexCache {
	return w.cache
}

func (w *Workspace) open(path string) (string, Editor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.overlay == nil {
		return "", nil, false
	}
	text, ok := w.overlay.Text(path)
	return text, w.editor, ok
}

func (w *Workspace) ResolveLink(link, from string) (string, bool) {
	return w.links.ResolveLink(link, from)
}

// Index returns the structural index of a note. Open documents are
// indexed from their live text, others through the cache.
func (w *Workspace) Index(ctx context.Context, path string) (*markdown.Index, error) {
	if text, _, ok := w.open(path); ok {
		return markdown.Parse([]byte(text)), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	modTime, err := w.vault.ModTime(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if ix, ok := w.cache.Get(path, modTime); ok {
		return ix, nil
	}

	data, err := w.vault.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ix := markdown.Parse(data)
	if err := w.cache.Put(path, modTime, ix); err != nil {
		log.Errorf("caching index of %s: %v", path, err)
	}
	return ix, nil
}

// Read returns the open text of a note, or its content on disk.
func (w *Workspace) Read(ctx context.Context, path string) (string, error) {
	if text, _, ok := w.open(path); ok {
		return text, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := w.vault.Read(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// Write replaces the text of a note. Open notes are changed through the
// client so its buffer and the disk never disagree; the rest is written
// to disk directly.
func (w *Workspace) Write(ctx context.Context, path, text string) error {
	if old, editor, ok := w.open(path); ok && editor != nil {
		return editor.ReplaceDocument(ctx, path, old, text)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.vault.Write(path, []byte(text)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.cache.Invalidate(path); err != nil {
		log.Errorf("invalidating index of %s: %v", path, err)
	}
	return nil
}

// Refresh re-indexes a note after it changed on disk.
func (w *Workspace) Refresh(ctx context.Context, path string) error {
	if err := w.cache.Invalidate(path); err != nil {
		return err
	}
	w.vault.Track(path)
	_, err := w.Index(ctx, path)
	return err
}

// Warm indexes data read by a scan unless the cache already holds an
// index at least as new.
func (w *Workspace) Warm(path string, data []byte) error {
	w.vault.Track(path)
	modTime, err := w.vault.ModTime(path)
	if err != nil {
		return err
	}
	if _, ok := w.cache.Get(path, modTime); ok {
		return nil
	}
	return w.cache.Put(path, modTime, markdown.Parse(data))
}

// Remove forgets a note deleted on disk.
func (w *Workspace) Remove(path string) error {
	w.vault.Forget(path)
	return w.cache.Invalidate(path)
}

// Prune drops cached indexes of notes the vault no longer has.
func (w *Workspace) Prune() error {
	return w.cache.Prune(w.vault.Exists)
}

func (w *Workspace) Close() error {
	return w.cache.Close()
}
