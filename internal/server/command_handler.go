package server

import (
	"errors"
	"log"

	"anchorlink/internal/suggest"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	s.client.update(context)
	if params.Command != commitCommand || s.provider == nil {
		return nil, nil
	}
	args, err := commitArgs(params.Arguments)
	if err != nil {
		log.Printf("Ignoring %s: %v", params.Command, err)
		return nil, nil
	}

	// The commit waits for workspace/applyEdit answers, which arrive on
	// the connection this handler is blocking.
	s.commits.Add(1)
	go func() {
		defer s.commits.Done()
		s.commit(args)
	}()
	return nil, nil
}

func (s *Server) commit(args itemData) {
	ctx, cancel := timeout()
	defer cancel()

	sf := &clientSurface{manager: s.manager, client: s.client}
	err := s.provider.Commit(ctx, surface, args.Token, args.Index, sf)
	switch {
	case err == nil:
	case errors.Is(err, suggest.ErrPersist):
		log.Printf("Commit: %v", err)
		s.client.showMessage(protocol.MessageTypeError, "anchorlink: could not save the block identifier: "+err.Error())
	case errors.Is(err, suggest.ErrStaleCoordinate):
		log.Printf("Commit: %v", err)
		s.client.showMessage(protocol.MessageTypeWarning, "anchorlink: the note changed, link not inserted")
	case suggest.Quiet(err):
		log.Printf("Commit skipped: %v", err)
	default:
		log.Printf("Commit: %v", err)
		s.client.showMessage(protocol.MessageTypeError, "anchorlink: "+err.Error())
	}
}
