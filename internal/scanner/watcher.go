package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"anchorlink/internal/vault"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports notes that change on disk. It watches the real
// filesystem below the vault root, whatever afero.Fs the vault uses.
type Watcher struct {
	watcher  *fsnotify.Watcher
	vault    *vault.Vault
	onChange func(path string)
	onRemove func(path string)
	done     chan struct{}
	once     sync.Once
}

// NewWatcher creates a watcher for every directory of the vault.
func NewWatcher(v *vault.Vault, onChange, onRemove func(path string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fsWatcher,
		vault:    v,
		onChange: onChange,
		onRemove: onRemove,
		done:     make(chan struct{}),
	}
	if err := w.addDirectoryRecursive(v.Root()); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addDirectoryRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.vault.Root() && w.vault.IgnoreDir(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		log.Debugf("watching %s", path)
		return nil
	})
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handle(event)

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("watch error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.vault.IgnoreDir(event.Name) {
				if err := w.addDirectoryRecursive(event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
					log.Errorf("watching %s: %v", event.Name, err)
				}
			}
			return
		}
	}
	if !w.vault.IsNote(event.Name) {
		return
	}
	rel, err := w.vault.Rel(event.Name)
	if err != nil {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		log.Debugf("removed: %s", rel)
		w.onRemove(rel)
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		log.Debugf("changed: %s", rel)
		w.onChange(rel)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
