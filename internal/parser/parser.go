// Package parser keeps a tree-sitter markdown tree per open document, used
// to tell whether a position lies inside a code block.
package parser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
)

var (
	lang        = markdown.GetLanguage()
	captureName = "code"
	codeQuery   = []byte(`[(fenced_code_block) (indented_code_block)] @code`)

	ErrClosed = errors.New("parser: closed")
)

// Block is a node range; rows are 0-based, End is exclusive.
type Block struct {
	Type  string
	Start sitter.Point
	End   sitter.Point
}

func (b Block) contains(pt sitter.Point) bool {
	return !less(pt, b.Start) && less(pt, b.End)
}

func less(a, b sitter.Point) bool {
	return a.Row < b.Row || (a.Row == b.Row && a.Column < b.Column)
}

func executeQuery(root *sitter.Node, query []byte) ([]Block, error) {
	q, err := sitter.NewQuery(query, lang)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	defer q.Close()
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	var blocks []Block
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			if q.CaptureNameForId(c.Index) != captureName {
				continue
			}
			blocks = append(blocks, Block{
				Type:  c.Node.Type(),
				Start: c.Node.StartPoint(),
				End:   c.Node.EndPoint(),
			})
		}
	}
	return blocks, nil
}

// Parser wraps a tree-sitter parser and the tree of one document.
type Parser struct {
	mu     sync.Mutex
	parser *sitter.Parser
	tree   *sitter.Tree
	source []byte
	code   []Block // nil until first asked for
}

// NewParser creates a Parser and parses initialText.
func NewParser(ctx context.Context, initialText []byte) (*Parser, error) {
	sp := sitter.NewParser()
	sp.SetLanguage(lang)
	p := &Parser{parser: sp}
	if err := p.parse(ctx, nil, initialText); err != nil {
		sp.Close()
		return nil, err
	}
	return p, nil
}

func (p *Parser) parse(ctx context.Context, old *sitter.Tree, source []byte) error {
	tree, err := p.parser.ParseCtx(ctx, old, source)
	if err != nil {
		return fmt.Errorf("parse markdown: %w", err)
	}
	if p.tree != nil {
		p.tree.Close()
	}
	p.tree = tree
	p.source = source
	p.code = nil
	return nil
}

// Reset reparses source from scratch.
func (p *Parser) Reset(ctx context.Context, source []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parser == nil {
		return ErrClosed
	}
	return p.parse(ctx, nil, source)
}

// Update applies edits to the current tree and reparses source, the text
// after those edits, reusing unchanged subtrees.
func (p *Parser) Update(ctx context.Context, source []byte, edits ...sitter.EditInput) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parser == nil {
		return ErrClosed
	}
	for _, e := range edits {
		p.tree.Edit(e)
	}
	return p.parse(ctx, p.tree, source)
}

// CodeBlocks lists the fenced and indented code blocks of the document.
func (p *Parser) CodeBlocks() ([]Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.codeBlocks()
}

func (p *Parser) codeBlocks() ([]Block, error) {
	if p.tree == nil {
		return nil, ErrClosed
	}
	if p.code == nil {
		blocks, err := executeQuery(p.tree.RootNode(), codeQuery)
		if err != nil {
			return nil, err
		}
		p.code = append([]Block{}, blocks...)
	}
	return p.code, nil
}

// InCode reports whether the byte position (row, col) lies inside a code
// block, fences included.
func (p *Parser) InCode(row, col uint32) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	blocks, err := p.codeBlocks()
	if err != nil {
		return false, err
	}
	pt := sitter.Point{Row: row, Column: col}
	for _, b := range blocks {
		if b.contains(pt) {
			return true, nil
		}
	}
	return false, nil
}

// Close frees the tree and the parser. Further calls fail with ErrClosed.
func (p *Parser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tree != nil {
		p.tree.Close()
		p.tree = nil
	}
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
	return nil
}
