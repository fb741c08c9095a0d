// Package server exposes anchor completion to editors over LSP.
package server

import (
	"sync"

	"anchorlink/internal/config"
	"anchorlink/internal/manager"
	"anchorlink/internal/resolver"
	"anchorlink/internal/scanner"
	"anchorlink/internal/scheduler"
	"anchorlink/internal/suggest"
	"anchorlink/internal/workspace"

	"github.com/spf13/afero"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const (
	name          = "anchorlink"
	commitCommand = "anchorlink.commit"

	// surface names the one editing surface of a connection.
	surface = "client"
)

type Server struct {
	version string
	base    config.Config
	fs      afero.Fs
	handler *protocol.Handler

	config    config.Config
	manager   *manager.DocumentManager
	resolver  *resolver.Resolver
	workspace *workspace.Workspace
	provider  *suggest.Provider
	tasks     *scheduler.Scheduler
	watcher   *scanner.Watcher
	client    *client
	commits   sync.WaitGroup
}

// NewServer creates a server that reads notes from fsys. cfg holds the
// settings from the command line and config file; the client may refine
// them on initialize.
func NewServer(cfg config.Config, fsys afero.Fs, version string) *Server {
	s := &Server{
		version: version,
		base:    cfg,
		fs:      fsys,
		manager: manager.NewDocumentManager(),
		client:  &client{},
	}
	s.handler = &protocol.Handler{
		Initialize:              s.initialize,
		Initialized:             s.initialized,
		Shutdown:                s.shutdown,
		SetTrace:                s.setTrace,
		TextDocumentDidOpen:     s.textDocumentDidOpen,
		TextDocumentDidChange:   s.textDocumentDidChange,
		TextDocumentDidSave:     s.textDocumentDidSave,
		TextDocumentDidClose:    s.textDocumentDidClose,
		TextDocumentCompletion:  s.textDocumentCompletion,
		CompletionItemResolve:   s.completionItemResolve,
		WorkspaceExecuteCommand: s.workspaceExecuteCommand,
	}
	return s
}

func (s *Server) Handler() *protocol.Handler {
	return s.handler
}

// RunStdio serves a single client on stdin and stdout.
func (s *Server) RunStdio() error {
	return server.NewServer(s.handler, name, false).RunStdio()
}

// client remembers how to reach the editor outside of a request.
type client struct {
	mu     sync.Mutex
	notify glsp.NotifyFunc
	call   glsp.CallFunc
}

func (c *client) update(ctx *glsp.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Notify != nil {
		c.notify = ctx.Notify
	}
	if ctx.Call != nil {
		c.call = ctx.Call
	}
}

func (c *client) get() (glsp.NotifyFunc, glsp.CallFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notify, c.call
}
