package server

import (
	"fmt"
	"log"
	"strings"
	"time"

	"anchorlink/internal/sitteradapter"
	"anchorlink/internal/suggest"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const requestTimeout = 5 * time.Second

func (s *Server) textDocumentCompletion(
	context *glsp.Context,
	params *protocol.CompletionParams,
) (any, error) {
	s.client.update(context)
	if s.provider == nil {
		return nil, nil
	}
	ctx, cancel := timeout()
	defer cancel()

	req := suggest.Request{Line: int(params.Position.Line)}
	if note, err := s.note(params.TextDocument.URI); err == nil {
		if line, ok := s.manager.Line(note.Path, req.Line); ok {
			req.Path = note.Path
			req.Prefix = line[:sitteradapter.ByteColumn(line, params.Position.Character)]
			inCode, err := s.manager.InCode(note.Path, params.Position)
			if err != nil {
				log.Printf("Code check of %s: %v", note.Path, err)
			}
			req.InCode = inCode
		}
	}

	session, err := s.provider.Trigger(ctx, surface, req)
	if err != nil {
		if !suggest.Quiet(err) {
			log.Printf("Completion: %v", err)
		}
		return nil, nil
	}
	rows, err := s.provider.Rows(ctx, surface, session.Token)
	if err != nil {
		log.Printf("Rendering %s: %v", session.Token, err)
		return nil, nil
	}

	items := make([]protocol.CompletionItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, completionItem(session, row, params.Position))
	}
	return protocol.CompletionList{IsIncomplete: false, Items: items}, nil
}

func (s *Server) completionItemResolve(
	context *glsp.Context,
	item *protocol.CompletionItem,
) (*protocol.CompletionItem, error) {
	if s.provider == nil {
		return item, nil
	}
	data, err := decodeItemData(item.Data)
	if err != nil {
		return item, nil
	}
	session, ok := s.provider.Session(surface, data.Token)
	if !ok {
		return item, nil
	}

	ctx, cancel := timeout()
	defer cancel()
	row, err := s.provider.Render(ctx, surface, data.Token, data.Index)
	if err != nil {
		log.Printf("Resolving item %d of %s: %v", data.Index, data.Token, err)
		return item, nil
	}
	label, detail, doc := present(session, row)
	item.Label = label
	item.Detail = &detail
	item.Documentation = doc
	return item, nil
}

// completionItem presents row. Selecting it inserts nothing by itself;
// the attached command rewrites the link.
func completionItem(session *suggest.Session, row suggest.Row, cursor protocol.Position) protocol.CompletionItem {
	kind := protocol.CompletionItemKindText
	if row.Level > 0 {
		kind = protocol.CompletionItemKindReference
	}
	label, detail, doc := present(session, row)
	sortText := fmt.Sprintf("%04d", row.Index)
	filterText := row.Text

	return protocol.CompletionItem{
		Label:         label,
		Kind:          &kind,
		Detail:        &detail,
		Documentation: doc,
		SortText:      &sortText,
		FilterText:    &filterText,
		TextEdit: protocol.TextEdit{
			Range:   protocol.Range{Start: cursor, End: cursor},
			NewText: "",
		},
		Command: &protocol.Command{
			Title:     "Insert anchor link",
			Command:   commitCommand,
			Arguments: []any{string(session.Token), row.Index},
		},
		Data: itemData{Token: session.Token, Index: row.Index},
	}
}

func present(session *suggest.Session, row suggest.Row) (string, string, protocol.MarkupContent) {
	label, _, _ := strings.Cut(row.Text, "\n")
	detail := row.Badge
	if session.Kind == suggest.Heading && session.NoteTitle != "" {
		detail = row.Badge + "  " + session.NoteTitle
	}
	return label, detail, protocol.MarkupContent{
		Kind:  protocol.MarkupKindMarkdown,
		Value: row.Text,
	}
}
