package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"anchorlink/internal/blockid"
	"anchorlink/internal/markdown"
	"anchorlink/internal/parser"
	"anchorlink/internal/scanner"
	"anchorlink/internal/suggest"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <root> <note> <line>",
	Short: "Show the anchors offered for the link ending line (1-based) of a note",
	Args:  cobra.ExactArgs(3),
	RunE:  runSuggest,
}

func runSuggest(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[2])
	if err != nil || n < 1 {
		return fmt.Errorf("invalid line %q", args[2])
	}
	ws, cfg, err := openWorkspace(args[0])
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := context.Background()
	// suffix matches need the full note list
	if err := scanner.Scan(ctx, ws.Vault(), func(path string, _ []byte) {
		ws.Vault().Track(path)
	}); err != nil {
		return err
	}

	note, err := ws.Resolver().Resolve(args[1])
	if err != nil {
		return err
	}
	text, err := ws.Read(ctx, note.Path)
	if err != nil {
		return err
	}
	lines := markdown.Lines(text)
	if n > len(lines) {
		return fmt.Errorf("%s has %d lines", note.Path, len(lines))
	}
	line := lines[n-1]

	p, err := parser.NewParser(ctx, []byte(text))
	if err != nil {
		return err
	}
	defer p.Close()
	inCode, err := p.InCode(uint32(n-1), uint32(len(line)))
	if err != nil {
		return err
	}

	provider := suggest.NewProvider(ws, blockid.New(cfg.BlockIDLength))
	session, err := provider.Trigger(ctx, "cli", suggest.Request{
		Path:   note.Path,
		Line:   n - 1,
		Prefix: line,
		InCode: inCode,
	})
	if err != nil {
		return err
	}
	rows, err := provider.Rows(ctx, "cli", session.Token)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "# %s anchors of %s\n", session.Kind, session.Target)
	for _, row := range rows {
		label, _, more := strings.Cut(row.Text, "\n")
		if more {
			label += " ..."
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", row.Index, row.Badge, label)
	}
	return w.Flush()
}
