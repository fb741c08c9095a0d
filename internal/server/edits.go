package server

import (
	"context"
	"errors"
	"fmt"

	"anchorlink/internal/manager"
	"anchorlink/internal/sitteradapter"
	"anchorlink/internal/suggest"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

var errNotApplied = errors.New("client did not apply the edit")

// applyEdit asks the client to apply edits to uri and waits for its
// answer, at most until ctx ends. It must not run on the connection's
// request goroutine.
func (c *client) applyEdit(ctx context.Context, label string, uri protocol.DocumentUri, edits ...protocol.TextEdit) error {
	_, call := c.get()
	if call == nil {
		return errNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var response protocol.ApplyWorkspaceEditResponse
	answered := make(chan struct{})
	go func() {
		defer close(answered)
		call("workspace/applyEdit", protocol.ApplyWorkspaceEditParams{
			Label: &label,
			Edit: protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentUri][]protocol.TextEdit{uri: edits},
			},
		}, &response)
	}()
	select {
	case <-answered:
	case <-ctx.Done():
		// a late answer is written into response and dropped
		return fmt.Errorf("waiting for workspace/applyEdit: %w", ctx.Err())
	}

	if !response.Applied {
		if response.FailureReason != nil {
			return fmt.Errorf("%w: %s", errNotApplied, *response.FailureReason)
		}
		return errNotApplied
	}
	return nil
}

func (c *client) showMessage(kind protocol.MessageType, message string) {
	notify, _ := c.get()
	if notify == nil {
		return
	}
	notify("window/showMessage", protocol.ShowMessageParams{
		Type:    kind,
		Message: message,
	})
}

// clientEditor rewrites notes that are open in the client.
type clientEditor struct {
	manager *manager.DocumentManager
	client  *client
}

func (e *clientEditor) ReplaceDocument(ctx context.Context, path, old, text string) error {
	uri, ok := e.manager.URI(path)
	if !ok {
		return fmt.Errorf("%w: %s", manager.ErrNotOpen, path)
	}
	return e.client.applyEdit(ctx, "Add block identifier", uri, protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{},
			End:   sitteradapter.EndPosition(old),
		},
		NewText: text,
	})
}

// clientSurface is the document a completion was requested in.
type clientSurface struct {
	manager *manager.DocumentManager
	client  *client
}

func (sf *clientSurface) ReplaceRange(ctx context.Context, span suggest.Span, text string) error {
	line, ok := sf.manager.Line(span.Path, span.Line)
	if !ok {
		return fmt.Errorf("%w: %s", manager.ErrNotOpen, span.Path)
	}
	uri, _ := sf.manager.URI(span.Path)
	return sf.client.applyEdit(ctx, "Insert anchor link", uri, protocol.TextEdit{
		Range:   sitteradapter.Range(line, span.Line, span.Start, span.End),
		NewText: text,
	})
}
