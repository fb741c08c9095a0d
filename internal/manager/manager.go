// Package manager holds the documents the client has open: their text,
// version and tree-sitter tree. Documents are keyed by vault path.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"anchorlink/internal/parser"
	"anchorlink/internal/sitteradapter"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var ErrNotOpen = errors.New("manager: document is not open")

type document struct {
	uri     protocol.DocumentUri
	version protocol.Integer
	text    string
	parser  *parser.Parser
}

// DocumentManager encapsulates parser and document state for each open
// document.
type DocumentManager struct {
	mu   sync.Mutex
	docs map[string]*document
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{docs: make(map[string]*document)}
}

// Open starts tracking a document, replacing any earlier state for path.
func (dm *DocumentManager) Open(ctx context.Context, path string, uri protocol.DocumentUri, version protocol.Integer, text string) error {
	p, err := parser.NewParser(ctx, []byte(text))
	if err != nil {
		return fmt.Errorf("failed to create parser for %s: %w", path, err)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if old, ok := dm.docs[path]; ok {
		old.parser.Close()
	}
	dm.docs[path] = &document{uri: uri, version: version, text: text, parser: p}
	return nil
}

// ApplyChanges applies the content changes of one didChange notification
// in order and returns the resulting text.
func (dm *DocumentManager) ApplyChanges(ctx context.Context, path string, version protocol.Integer, changes []any) (string, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotOpen, path)
	}

	for _, change := range changes {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				if err := dm.replace(ctx, doc, c.Text); err != nil {
					return "", err
				}
				continue
			}
			edit := sitteradapter.EditInput(c, doc.text)
			text := sitteradapter.Apply(c, doc.text)
			if err := doc.parser.Update(ctx, []byte(text), edit); err != nil {
				return "", fmt.Errorf("reparse %s: %w", path, err)
			}
			doc.text = text

		case protocol.TextDocumentContentChangeEventWhole:
			if err := dm.replace(ctx, doc, c.Text); err != nil {
				return "", err
			}

		default:
			return "", fmt.Errorf("unsupported content change %T", change)
		}
	}
	doc.version = version
	return doc.text, nil
}

func (dm *DocumentManager) replace(ctx context.Context, doc *document, text string) error {
	if err := doc.parser.Reset(ctx, []byte(text)); err != nil {
		return err
	}
	doc.text = text
	return nil
}

// Text returns the current text of an open document.
func (dm *DocumentManager) Text(path string) (string, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	doc, ok := dm.docs[path]
	if !ok {
		return "", false
	}
	return doc.text, true
}

// Line returns line n of an open document.
func (dm *DocumentManager) Line(path string, n int) (string, bool) {
	text, ok := dm.Text(path)
	if !ok {
		return "", false
	}
	return sitteradapter.LineAt(text, n), true
}

// URI returns the URI the client opened path under.
func (dm *DocumentManager) URI(path string) (protocol.DocumentUri, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	doc, ok := dm.docs[path]
	if !ok {
		return "", false
	}
	return doc.uri, true
}

func (dm *DocumentManager) Version(path string) (protocol.Integer, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	doc, ok := dm.docs[path]
	if !ok {
		return 0, false
	}
	return doc.version, true
}

// InCode reports whether pos lies inside a code block of an open
// document.
func (dm *DocumentManager) InCode(path string, pos protocol.Position) (bool, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	doc, ok := dm.docs[path]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotOpen, path)
	}
	_, pt := sitteradapter.Offset(doc.text, pos)
	return doc.parser.InCode(pt.Row, pt.Column)
}

// Paths lists the open documents.
func (dm *DocumentManager) Paths() []string {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	paths := make([]string, 0, len(dm.docs))
	for p := range dm.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Release frees parser and document for a path.
func (dm *DocumentManager) Release(path string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if doc, ok := dm.docs[path]; ok {
		doc.parser.Close()
		delete(dm.docs, path)
	}
}

// CloseAll cleans up all parsers.
func (dm *DocumentManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var errs []error
	for path, doc := range dm.docs {
		if err := doc.parser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing parser for %s: %w", path, err))
		}
	}
	dm.docs = make(map[string]*document)
	return errors.Join(errs...)
}
