package trigger_test

import (
	"testing"

	"anchorlink/internal/trigger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMatches(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		title string
		path  string
		kind  trigger.Kind
		start int
	}{
		{
			name:  "heading with angle brackets",
			line:  "See [Intro](<notes.md>)#",
			title: "Intro",
			path:  "notes.md",
			kind:  trigger.Heading,
			start: 4,
		},
		{
			name:  "block with angle brackets",
			line:  "[Ref](<a.md>)^",
			title: "Ref",
			path:  "a.md",
			kind:  trigger.Block,
			start: 0,
		},
		{
			name:  "no angle brackets",
			line:  "x [t](dir/note)#",
			title: "t",
			path:  "dir/note",
			kind:  trigger.Heading,
			start: 2,
		},
		{
			name:  "lenient single angle",
			line:  "[t](<dir/note)^",
			title: "t",
			path:  "dir/note",
			kind:  trigger.Block,
			start: 0,
		},
		{
			name:  "empty title and spaces in path",
			line:  "[](<my notes.md>)#",
			title: "",
			path:  "my notes.md",
			kind:  trigger.Heading,
			start: 0,
		},
		{
			name:  "second link on the line",
			line:  "[a](x) and [b](<y.md>)#",
			title: "b",
			path:  "y.md",
			kind:  trigger.Heading,
			start: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := trigger.Parse(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.title, m.Title)
			assert.Equal(t, tt.path, m.Path)
			assert.Equal(t, tt.kind, m.Kind)
			assert.Equal(t, tt.start, m.Start)
			assert.Equal(t, len(tt.line), m.End)
			assert.Equal(t, tt.line[tt.start:], m.Text)
		})
	}
}

func TestParseRejects(t *testing.T) {
	lines := []string{
		"",
		"plain text#",
		"[Intro](<notes.md>)",
		"[Intro](<notes.md>)# ",
		"[Intro](<notes.md>)#x",
		"[Intro](<notes.md#Overview>)#",
		"[Intro](<notes.md^abc>)^",
		"[Intro](notes.md#",
		"Intro](notes.md)#",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			_, ok := trigger.Parse(line)
			assert.False(t, ok)
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "heading", trigger.Heading.String())
	assert.Equal(t, "block", trigger.Block.String())
	assert.Equal(t, "#", trigger.Heading.Marker())
	assert.Equal(t, "^", trigger.Block.Marker())
}
