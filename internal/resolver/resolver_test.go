package resolver_test

import (
	"testing"

	"anchorlink/internal/resolver"
	"anchorlink/internal/vault"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T, notes ...string) *resolver.Resolver {
	t.Helper()
	fsys := afero.NewMemMapFs()
	v := vault.New(fsys, "/vault", []string{".md"}, nil)
	for _, n := range notes {
		require.NoError(t, v.Write(n, []byte("x")))
	}
	return resolver.New("/vault", ".md", v)
}

func TestResolve(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		name string
		base string
		uri  string
		path string
	}{
		{"uri", "file:///vault/dir/a.md", "file:///vault/dir/a.md", "dir/a.md"},
		{"escaped uri", "file:///vault/my%20note.md", "file:///vault/my%20note.md", "my note.md"},
		{"absolute", "/vault/a.md", "file:///vault/a.md", "a.md"},
		{"relative", "dir/../b.md", "file:///vault/b.md", "b.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note, err := r.Resolve(tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.uri, note.URI)
			assert.Equal(t, tt.path, note.Path)
		})
	}

	_, err := r.Resolve("/elsewhere/a.md")
	assert.Error(t, err)
}

func TestResolveLink(t *testing.T) {
	r := newResolver(t,
		"notes.md",
		"projects/notes.md",
		"projects/plan.md",
		"archive/2020/plan.md",
		"deep/x/plan.md",
		"my note.md",
	)

	tests := []struct {
		name string
		link string
		from string
		want string
		ok   bool
	}{
		{"source relative first", "notes.md", "projects/today.md", "projects/notes.md", true},
		{"root fallback", "notes.md", "daily/today.md", "notes.md", true},
		{"extension appended", "notes", "daily/today.md", "notes.md", true},
		{"rooted skips source dir", "/notes.md", "projects/today.md", "notes.md", true},
		{"shortest suffix match", "plan.md", "daily/today.md", "deep/x/plan.md", true},
		{"suffix with directory", "2020/plan", "today.md", "archive/2020/plan.md", true},
		{"parent directory", "../notes.md", "projects/today.md", "notes.md", true},
		{"escaped spaces", "my%20note.md", "today.md", "my note.md", true},
		{"missing", "nothing.md", "today.md", "", false},
		{"escapes vault", "../../outside.md", "projects/today.md", "", false},
		{"directory", "projects/", "today.md", "", false},
		{"empty", " ", "today.md", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.ResolveLink(tt.link, tt.from)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
