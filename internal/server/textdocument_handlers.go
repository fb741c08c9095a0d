package server

import (
	"context"
	"errors"

	"anchorlink/internal/resolver"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var errNotInitialized = errors.New("server not initialized")

// note maps a client URI onto the vault.
func (s *Server) note(uri protocol.DocumentUri) (resolver.Note, error) {
	if s.resolver == nil {
		return resolver.Note{}, errNotInitialized
	}
	return s.resolver.Resolve(uri)
}

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	s.client.update(context)
	note, err := s.note(params.TextDocument.URI)
	if err != nil {
		return err
	}
	if err := s.manager.Open(background(), note.Path, params.TextDocument.URI,
		params.TextDocument.Version, params.TextDocument.Text); err != nil {
		return err
	}
	s.workspace.Vault().Track(note.Path)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	s.client.update(context)
	note, err := s.note(params.TextDocument.URI)
	if err != nil {
		return err
	}
	_, err = s.manager.ApplyChanges(background(), note.Path,
		params.TextDocument.Version, params.ContentChanges)
	return err
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	note, err := s.note(params.TextDocument.URI)
	if err != nil {
		return err
	}
	s.noteChanged(note.Path)
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	note, err := s.note(params.TextDocument.URI)
	if err != nil {
		return err
	}
	s.manager.Release(note.Path)
	// the client may discard unsaved edits or a never saved buffer
	s.noteChanged(note.Path)
	return nil
}

// background is the context of work started by a notification. Handlers
// name their glsp context "context", so the package is not reachable
// there.
func background() context.Context {
	return context.Background()
}

// timeout bounds the work of one request.
func timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
