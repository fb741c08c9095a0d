package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"anchorlink/internal/blockid"
	"anchorlink/internal/cache"
	"anchorlink/internal/config"
	"anchorlink/internal/resolver"
	"anchorlink/internal/scanner"
	"anchorlink/internal/scheduler"
	"anchorlink/internal/suggest"
	"anchorlink/internal/vault"
	"anchorlink/internal/workspace"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const pruneInterval = 10 * time.Minute

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	s.client.update(context)

	cfg, err := config.Overlay(s.base, params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	cfg.Root = rootOf(params, cfg.Root)
	s.config = cfg
	log.Printf("Config: %+v", cfg)

	v := vault.New(s.fs, cfg.Root, cfg.Extensions, cfg.IgnoreDirs)
	s.resolver = resolver.New(cfg.Root, cfg.DefaultExtension, v)
	s.workspace = workspace.New(v, s.resolver, openIndexCache(cfg))
	s.workspace.Attach(s.manager, &clientEditor{manager: s.manager, client: s.client})
	s.provider = suggest.NewProvider(s.workspace, blockid.New(cfg.BlockIDLength))

	s.startBackground(v)

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.False},
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"#", "^"},
		ResolveProvider:   &protocol.True,
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{commitCommand},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    name,
			Version: &s.version,
		},
	}, nil
}

// rootOf picks the vault root: the root URI, then the first workspace
// folder, then the root path, then fallback.
func rootOf(params *protocol.InitializeParams, fallback string) string {
	var uris []string
	if params.RootURI != nil {
		uris = append(uris, *params.RootURI)
	}
	for _, f := range params.WorkspaceFolders {
		uris = append(uris, f.URI)
	}
	for _, raw := range uris {
		u, err := url.Parse(raw)
		if err == nil && u.Scheme == "file" && u.Path != "" {
			return filepath.Clean(filepath.FromSlash(u.Path))
		}
	}
	if params.RootPath != nil && *params.RootPath != "" {
		return filepath.Clean(*params.RootPath)
	}
	if abs, err := filepath.Abs(fallback); err == nil {
		return abs
	}
	return fallback
}

// openIndexCache opens the persistent cache of cfg.Root, falling back to
// a memory cache when that is disabled or fails.
func openIndexCache(cfg config.Config) *cache.IndexCache {
	if !cfg.IndexCache {
		return cache.New(nil)
	}
	dbPath := cfg.CachePath(cfg.Root)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		log.Printf("Failed to create state directory: %v", err)
		return cache.New(nil)
	}
	store, err := cache.NewFilecache(dbPath)
	if err != nil {
		log.Printf("Index cache disabled: %v", err)
		return cache.New(nil)
	}
	log.Printf("Index cache at %s", dbPath)
	return cache.New(store)
}

// startBackground indexes the vault, prunes the cache periodically and
// follows changes made outside the editor.
func (s *Server) startBackground(v *vault.Vault) {
	s.tasks = scheduler.NewScheduler(256)
	if err := s.tasks.Schedule(context.Background(), s.scanTask()); err != nil {
		log.Printf("Scheduling scan: %v", err)
	}
	s.tasks.Periodic(pruneInterval, scheduler.Task{
		Name:    "prune",
		Execute: func(context.Context) error { return s.workspace.Prune() },
	})

	if !s.config.Watch {
		return
	}
	w, err := scanner.NewWatcher(v, s.noteChanged, s.noteRemoved)
	if err != nil {
		log.Printf("Not watching %s: %v", s.config.Root, err)
		return
	}
	s.watcher = w
	s.watcher.Start()
}

func (s *Server) scanTask() scheduler.Task {
	return scheduler.Task{
		Name: "scan",
		Execute: func(ctx context.Context) error {
			start := time.Now()
			count := 0
			err := scanner.Scan(ctx, s.workspace.Vault(), func(path string, document []byte) {
				if err := s.workspace.Warm(path, document); err != nil {
					log.Printf("Indexing %s: %v", path, err)
				}
				count++
			})
			if err != nil {
				return fmt.Errorf("scan %s: %w", s.config.Root, err)
			}
			log.Printf("Scanned %d notes in %s", count, time.Since(start))
			return s.workspace.Prune()
		},
	}
}

// noteChanged re-indexes path from disk, or forgets it when it is gone.
func (s *Server) noteChanged(path string) {
	s.schedule(scheduler.Task{
		Name: "refresh " + path,
		Execute: func(ctx context.Context) error {
			if _, err := s.workspace.Vault().ModTime(path); err != nil {
				return s.workspace.Remove(path)
			}
			return s.workspace.Refresh(ctx, path)
		},
	})
}

func (s *Server) noteRemoved(path string) {
	s.schedule(scheduler.Task{
		Name:    "remove " + path,
		Execute: func(context.Context) error { return s.workspace.Remove(path) },
	})
}

func (s *Server) schedule(task scheduler.Task) {
	if s.tasks == nil {
		return
	}
	if err := s.tasks.TrySchedule(task); err != nil && !errors.Is(err, scheduler.ErrStopped) {
		log.Printf("Dropped %s: %v", task.Name, err)
	}
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Println("Client initialized.")
	return nil
}

func (s *Server) setTrace(
	context *glsp.Context,
	params *protocol.SetTraceParams,
) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Stop())
	}
	if s.tasks != nil {
		s.tasks.Stop()
	}
	// commits still write through the manager and the cache
	s.commits.Wait()
	errs = append(errs, s.manager.CloseAll())
	if s.workspace != nil {
		errs = append(errs, s.workspace.Close())
	}
	protocol.SetTraceValue(protocol.TraceValueOff)
	return errors.Join(errs...)
}
