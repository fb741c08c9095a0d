package server

import (
	"strings"
	"sync"
	"testing"
	"time"

	"anchorlink/internal/config"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

type applied struct {
	uri   protocol.DocumentUri
	edits []protocol.TextEdit
}

// fakeClient answers workspace/applyEdit and records what it was sent.
type fakeClient struct {
	mu       sync.Mutex
	gate     chan struct{} // when set, applyEdit answers wait for it to close
	reject   map[protocol.DocumentUri]bool
	edits    []applied
	messages []protocol.ShowMessageParams
}

func (c *fakeClient) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if method == "window/showMessage" {
				c.messages = append(c.messages, params.(protocol.ShowMessageParams))
			}
		},
		Call: func(method string, params any, result any) {
			c.mu.Lock()
			gate := c.gate
			c.mu.Unlock()
			if gate != nil {
				<-gate
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			if method != "workspace/applyEdit" {
				return
			}
			edit := params.(protocol.ApplyWorkspaceEditParams).Edit
			response := result.(*protocol.ApplyWorkspaceEditResponse)
			for uri, edits := range edit.Changes {
				if c.reject[uri] {
					return
				}
				c.edits = append(c.edits, applied{uri: uri, edits: edits})
			}
			response.Applied = true
		},
	}
}

func (c *fakeClient) applied() []applied {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]applied(nil), c.edits...)
}

func (c *fakeClient) shown() []protocol.ShowMessageParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ShowMessageParams(nil), c.messages...)
}

type fixture struct {
	t      *testing.T
	fs     afero.Fs
	server *Server
	client *fakeClient
	ctx    *glsp.Context
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/vault/"+name, []byte(content), 0o644))
	}

	cfg := config.Config{
		Root:             "/vault",
		Extensions:       []string{".md"},
		DefaultExtension: ".md",
		BlockIDLength:    6,
		IgnoreDirs:       []string{".git"},
	}
	f := &fixture{t: t, fs: fs, server: NewServer(cfg, fs, "test"), client: &fakeClient{}}
	f.ctx = f.client.context()

	rootURI := "file:///vault"
	result, err := f.server.initialize(f.ctx, &protocol.InitializeParams{RootURI: &rootURI})
	require.NoError(t, err)
	res := result.(protocol.InitializeResult)
	require.NotNil(t, res.Capabilities.CompletionProvider)
	assert.Equal(t, []string{"#", "^"}, res.Capabilities.CompletionProvider.TriggerCharacters)

	t.Cleanup(func() {
		f.server.commits.Wait()
		assert.NoError(t, f.server.shutdown(f.ctx))
	})
	return f
}

func uri(name string) protocol.DocumentUri {
	return "file:///vault/" + name
}

func (f *fixture) open(name, text string) {
	f.t.Helper()
	require.NoError(f.t, f.server.textDocumentDidOpen(f.ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri(name), LanguageID: "markdown", Version: 1, Text: text},
	}))
}

func (f *fixture) change(name string, version protocol.Integer, text string) {
	f.t.Helper()
	require.NoError(f.t, f.server.textDocumentDidChange(f.ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri(name)},
			Version:                version,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
	}))
}

func (f *fixture) complete(name string, line, character uint32) []protocol.CompletionItem {
	f.t.Helper()
	result, err := f.server.textDocumentCompletion(f.ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri(name)},
			Position:     protocol.Position{Line: line, Character: character},
		},
	})
	require.NoError(f.t, err)
	if result == nil {
		return nil
	}
	return result.(protocol.CompletionList).Items
}

// execute runs the command of item the way a client echoes it back and
// waits for the commit to finish.
func (f *fixture) execute(item protocol.CompletionItem) {
	f.t.Helper()
	f.start(item)
	f.server.commits.Wait()
}

// start runs the command of item without waiting for the commit.
func (f *fixture) start(item protocol.CompletionItem) {
	f.t.Helper()
	require.NotNil(f.t, item.Command)
	args := []any{item.Command.Arguments[0], float64(item.Command.Arguments[1].(int))}
	_, err := f.server.workspaceExecuteCommand(f.ctx, &protocol.ExecuteCommandParams{
		Command:   item.Command.Command,
		Arguments: args,
	})
	require.NoError(f.t, err)
}

func TestHeadingCompletionAndCommit(t *testing.T) {
	f := newFixture(t, map[string]string{
		"notes.md": "# Notes\n\nintro\n## Overview\n",
	})
	source := "See [Intro](<notes.md>)#"
	f.open("src.md", source)

	items := f.complete("src.md", 0, uint32(len(source)))
	require.Len(t, items, 2)
	assert.Equal(t, "Notes", items[0].Label)
	assert.Equal(t, "Overview", items[1].Label)
	assert.Equal(t, "H2", *items[1].Detail)
	assert.Equal(t, protocol.CompletionItemKindReference, *items[1].Kind)
	assert.Equal(t, "0001", *items[1].SortText)

	f.execute(items[1])
	edits := f.client.applied()
	require.Len(t, edits, 1)
	assert.Equal(t, uri("src.md"), edits[0].uri)
	assert.Equal(t, protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 4},
			End:   protocol.Position{Line: 0, Character: uint32(len(source))},
		},
		NewText: "[Intro](<notes.md#Overview>)",
	}, edits[0].edits[0])
	assert.Empty(t, f.client.shown())

	// consumed
	f.execute(items[0])
	assert.Len(t, f.client.applied(), 1)
}

func TestBlockCommitPersistsIdentifier(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "# A\n\nfirst line\nsecond line\n",
	})
	source := "[Ref](<a.md>)^"
	f.open("src.md", source)

	items := f.complete("src.md", 0, uint32(len(source)))
	require.Len(t, items, 2)
	paragraph := items[1]
	assert.Equal(t, "first line", paragraph.Label)
	assert.Equal(t, protocol.CompletionItemKindText, *paragraph.Kind)
	require.True(t, strings.HasPrefix(*paragraph.Detail, ">"))
	id := strings.TrimPrefix(*paragraph.Detail, ">")

	f.execute(paragraph)
	data, err := afero.ReadFile(f.fs, "/vault/a.md")
	require.NoError(t, err)
	assert.Equal(t, "# A\n\nfirst line\nsecond line ^"+id+"\n", string(data))

	edits := f.client.applied()
	require.Len(t, edits, 1)
	assert.Equal(t, "[Ref](<a.md#^"+id+">)", edits[0].edits[0].NewText)
}

func TestOpenTargetIsEditedThroughClient(t *testing.T) {
	target := "para\n"
	f := newFixture(t, map[string]string{"a.md": target})
	f.open("a.md", target)
	source := "[A](<a.md>)^"
	f.open("src.md", source)

	items := f.complete("src.md", 0, uint32(len(source)))
	require.Len(t, items, 1)
	f.execute(items[0])

	edits := f.client.applied()
	require.Len(t, edits, 2)
	assert.Equal(t, uri("a.md"), edits[0].uri, "target before source")
	assert.Equal(t, uri("src.md"), edits[1].uri)
	assert.True(t, strings.HasPrefix(edits[0].edits[0].NewText, "para ^"))

	data, err := afero.ReadFile(f.fs, "/vault/a.md")
	require.NoError(t, err)
	assert.Equal(t, target, string(data), "disk is left to the client")
}

func TestRejectedTargetEditLeavesSource(t *testing.T) {
	target := "para\n"
	f := newFixture(t, map[string]string{"a.md": target})
	f.open("a.md", target)
	source := "[A](<a.md>)^"
	f.open("src.md", source)
	f.client.reject = map[protocol.DocumentUri]bool{uri("a.md"): true}

	items := f.complete("src.md", 0, uint32(len(source)))
	require.Len(t, items, 1)
	f.execute(items[0])

	assert.Empty(t, f.client.applied())
	shown := f.client.shown()
	require.Len(t, shown, 1)
	assert.Equal(t, protocol.MessageTypeError, shown[0].Type)
}

func TestStaleSourceIsReported(t *testing.T) {
	f := newFixture(t, map[string]string{"notes.md": "## Overview\n"})
	source := "[N](<notes.md>)#"
	f.open("src.md", source)

	items := f.complete("src.md", 0, uint32(len(source)))
	require.Len(t, items, 1)
	f.change("src.md", 2, "rewritten")
	f.execute(items[0])

	assert.Empty(t, f.client.applied())
	shown := f.client.shown()
	require.Len(t, shown, 1)
	assert.Equal(t, protocol.MessageTypeWarning, shown[0].Type)
}

func TestNoCompletion(t *testing.T) {
	f := newFixture(t, map[string]string{"notes.md": "## Overview\n"})

	tests := []struct {
		name string
		text string
		line uint32
	}{
		{"no marker", "[N](<notes.md>)", 0},
		{"unknown target", "[N](<missing.md>)#", 0},
		{"inside code", "```\n[N](<notes.md>)#\n```\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.open("src.md", tt.text)
			line := strings.Split(tt.text, "\n")[tt.line]
			assert.Empty(t, f.complete("src.md", tt.line, uint32(len(line))))
		})
	}
}

func TestSupersededItemDoesNothing(t *testing.T) {
	f := newFixture(t, map[string]string{"notes.md": "## Overview\n"})
	source := "[N](<notes.md>)#"
	f.open("src.md", source)

	first := f.complete("src.md", 0, uint32(len(source)))
	require.Len(t, first, 1)
	second := f.complete("src.md", 0, uint32(len(source)))
	require.Len(t, second, 1)

	f.execute(first[0])
	assert.Empty(t, f.client.applied())
	assert.Empty(t, f.client.shown())

	f.execute(second[0])
	assert.Len(t, f.client.applied(), 1)
}

func TestCompletionItemResolve(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "para one\n"})
	source := "[A](<a.md>)^"
	f.open("src.md", source)

	items := f.complete("src.md", 0, uint32(len(source)))
	require.Len(t, items, 1)

	// what the client sends back is plain JSON
	echoed := items[0]
	echoed.Label = ""
	echoed.Data = map[string]any{"token": items[0].Command.Arguments[0], "index": float64(0)}
	resolved, err := f.server.completionItemResolve(f.ctx, &echoed)
	require.NoError(t, err)
	assert.Equal(t, "para one", resolved.Label)

	garbage := protocol.CompletionItem{Label: "x", Data: "nonsense"}
	resolved, err = f.server.completionItemResolve(f.ctx, &garbage)
	require.NoError(t, err)
	assert.Equal(t, "x", resolved.Label)
}

func TestCommitArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []any
		want    itemData
		wantErr bool
	}{
		{"json numbers", []any{"tok", float64(3)}, itemData{Token: "tok", Index: 3}, false},
		{"ints", []any{"tok", 1}, itemData{Token: "tok", Index: 1}, false},
		{"missing index", []any{"tok"}, itemData{}, true},
		{"fractional index", []any{"tok", 1.5}, itemData{}, true},
		{"negative index", []any{"tok", float64(-1)}, itemData{}, true},
		{"empty token", []any{"", float64(0)}, itemData{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := commitArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootOf(t *testing.T) {
	root := "file:///home/me/notes"
	path := "/elsewhere"
	assert.Equal(t, "/home/me/notes", rootOf(&protocol.InitializeParams{RootURI: &root}, "."))
	assert.Equal(t, "/home/me/notes", rootOf(&protocol.InitializeParams{
		WorkspaceFolders: []protocol.WorkspaceFolder{{URI: root, Name: "notes"}},
	}, "."))
	assert.Equal(t, "/elsewhere", rootOf(&protocol.InitializeParams{RootPath: &path}, "."))
	assert.Equal(t, "/fallback", rootOf(&protocol.InitializeParams{}, "/fallback"))
}

func TestShutdownWaitsForCommit(t *testing.T) {
	f := newFixture(t, map[string]string{"notes.md": "## Overview\n"})
	source := "[N](<notes.md>)#"
	f.open("src.md", source)

	items := f.complete("src.md", 0, uint32(len(source)))
	require.Len(t, items, 1)

	gate := make(chan struct{})
	f.client.mu.Lock()
	f.client.gate = gate
	f.client.mu.Unlock()
	f.start(items[0])

	done := make(chan error, 1)
	go func() { done <- f.server.shutdown(f.ctx) }()
	assert.Never(t, func() bool { return len(done) > 0 }, 50*time.Millisecond, 5*time.Millisecond,
		"shutdown returned while a commit waited for the client")

	close(gate)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return")
	}
	edits := f.client.applied()
	require.Len(t, edits, 1)
	assert.Equal(t, "[N](<notes.md#Overview>)", edits[0].edits[0].NewText)
}
