package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"anchorlink/internal/cache"
	"anchorlink/internal/config"
	"anchorlink/internal/resolver"
	"anchorlink/internal/vault"
	"anchorlink/internal/workspace"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <root> <note>",
	Short: "Print the structural index of a note as JSON",
	Args:  cobra.ExactArgs(2),
	RunE:  runDump,
}

// openWorkspace builds a workspace over the vault at root without a
// client or a persistent cache.
func openWorkspace(root string) (*workspace.Workspace, config.Config, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, config.Config{}, err
	}
	cfg.Root, err = filepath.Abs(root)
	if err != nil {
		return nil, config.Config{}, err
	}
	vlt := vault.New(afero.NewOsFs(), cfg.Root, cfg.Extensions, cfg.IgnoreDirs)
	links := resolver.New(cfg.Root, cfg.DefaultExtension, vlt)
	return workspace.New(vlt, links, cache.New(nil)), cfg, nil
}

func runDump(cmd *cobra.Command, args []string) error {
	ws, _, err := openWorkspace(args[0])
	if err != nil {
		return err
	}
	defer ws.Close()

	note, err := ws.Resolver().Resolve(args[1])
	if err != nil {
		return err
	}
	ix, err := ws.Index(context.Background(), note.Path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(ix)
}
