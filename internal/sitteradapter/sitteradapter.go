// Package sitteradapter converts between LSP positions (line, UTF-16 code
// unit) and the byte offsets and points used by tree-sitter and the rest
// of the server.
package sitteradapter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	lsp "github.com/tliron/glsp/protocol_3_16"
)

// EditInput converts an incremental LSP change into a tree-sitter edit
// against document, the text before the change.
func EditInput(change lsp.TextDocumentContentChangeEvent, document string) sitter.EditInput {
	start, startPoint := Offset(document, change.Range.Start)
	oldEnd, oldEndPoint := Offset(document, change.Range.End)

	return sitter.EditInput{
		StartIndex:  uint32(start),
		OldEndIndex: uint32(oldEnd),
		NewEndIndex: uint32(start + len(change.Text)),
		StartPoint:  startPoint,
		OldEndPoint: oldEndPoint,
		NewEndPoint: endPoint(startPoint, change.Text),
	}
}

// Apply splices an incremental LSP change into document.
func Apply(change lsp.TextDocumentContentChangeEvent, document string) string {
	start, _ := Offset(document, change.Range.Start)
	end, _ := Offset(document, change.Range.End)
	if end < start {
		start, end = end, start
	}
	return document[:start] + change.Text + document[end:]
}

// Offset returns the byte offset and tree-sitter point of pos. Lines past
// the end clamp to the last line, characters past the end of a line clamp
// to its end.
func Offset(document string, pos lsp.Position) (int, sitter.Point) {
	offset := 0
	row := uint32(0)
	rest := document
	for row < pos.Line {
		i := strings.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		offset += i + 1
		rest = rest[i+1:]
		row++
	}
	line := rest
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	col := ByteColumn(line, pos.Character)
	return offset + col, sitter.Point{Row: row, Column: uint32(col)}
}

// ByteColumn converts a UTF-16 column on line to a byte column.
func ByteColumn(line string, character uint32) int {
	var units uint32
	for i, r := range line {
		n := uint32(1)
		if r > 0xFFFF {
			n = 2
		}
		if units+n > character {
			return i
		}
		units += n
	}
	return len(line)
}

// UTF16Column converts a byte column on line to a UTF-16 column.
func UTF16Column(line string, byteCol int) uint32 {
	if byteCol > len(line) {
		byteCol = len(line)
	}
	var units uint32
	for _, r := range line[:byteCol] {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return units
}

// Range builds the LSP range of the byte span [start, end) on line n,
// whose text is line.
func Range(line string, n int, start, end int) lsp.Range {
	return lsp.Range{
		Start: lsp.Position{Line: uint32(n), Character: UTF16Column(line, start)},
		End:   lsp.Position{Line: uint32(n), Character: UTF16Column(line, end)},
	}
}

// Position converts a tree-sitter point in document to an LSP position.
func Position(pt sitter.Point, document string) lsp.Position {
	return lsp.Position{Line: pt.Row, Character: UTF16Column(LineAt(document, int(pt.Row)), int(pt.Column))}
}

// LineAt returns line n of document without its terminator. Lines past
// the end are empty.
func LineAt(document string, n int) string {
	for ; n > 0; n-- {
		i := strings.IndexByte(document, '\n')
		if i < 0 {
			return ""
		}
		document = document[i+1:]
	}
	if i := strings.IndexByte(document, '\n'); i >= 0 {
		document = document[:i]
	}
	return strings.TrimSuffix(document, "\r")
}

// EndPosition is the position just past the last character of document.
func EndPosition(document string) lsp.Position {
	last := document[strings.LastIndexByte(document, '\n')+1:]
	return lsp.Position{
		Line:      uint32(strings.Count(document, "\n")),
		Character: UTF16Column(last, len(last)),
	}
}

func endPoint(start sitter.Point, inserted string) sitter.Point {
	lines := strings.Count(inserted, "\n")
	if lines == 0 {
		return sitter.Point{Row: start.Row, Column: start.Column + uint32(len(inserted))}
	}
	last := inserted[strings.LastIndexByte(inserted, '\n')+1:]
	return sitter.Point{Row: start.Row + uint32(lines), Column: uint32(len(last))}
}

