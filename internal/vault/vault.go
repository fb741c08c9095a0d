// Package vault is the file storage of a notes directory. Paths handed in
// and out are vault-relative and slash separated.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

var ErrOutsideVault = errors.New("vault: path is outside the vault")

// Vault reads and writes notes below root and tracks which notes exist.
type Vault struct {
	fs         afero.Fs
	root       string
	extensions map[string]struct{}
	ignoreDirs map[string]struct{}

	mu    sync.RWMutex
	notes map[string]struct{}
}

func New(fsys afero.Fs, root string, extensions []string, ignoreDirs []string) *Vault {
	v := &Vault{
		fs:         fsys,
		root:       filepath.Clean(root),
		extensions: make(map[string]struct{}, len(extensions)),
		ignoreDirs: make(map[string]struct{}, len(ignoreDirs)),
		notes:      make(map[string]struct{}),
	}
	for _, ext := range extensions {
		v.extensions[strings.ToLower(ext)] = struct{}{}
	}
	for _, dir := range ignoreDirs {
		v.ignoreDirs[dir] = struct{}{}
	}
	return v
}

func (v *Vault) Fs() afero.Fs {
	return v.fs
}

func (v *Vault) Root() string {
	return v.root
}

// Abs returns the filesystem path of a vault path.
func (v *Vault) Abs(rel string) string {
	return filepath.Join(v.root, filepath.FromSlash(rel))
}

// Rel converts a filesystem path below root into a vault path.
func (v *Vault) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(v.root, filepath.Clean(abs))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, abs)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, abs)
	}
	return rel, nil
}

// IsNote reports whether a file name has a note extension.
func (v *Vault) IsNote(name string) bool {
	_, ok := v.extensions[strings.ToLower(path.Ext(name))]
	return ok
}

// IgnoreDir reports whether a directory is skipped when scanning.
// Hidden directories are always skipped.
func (v *Vault) IgnoreDir(name string) bool {
	base := filepath.Base(name)
	if base != "." && strings.HasPrefix(base, ".") {
		return true
	}
	_, ok := v.ignoreDirs[base]
	return ok
}

func (v *Vault) Read(rel string) ([]byte, error) {
	return afero.ReadFile(v.fs, v.Abs(rel))
}

// Write replaces the content of a note, keeping its permissions.
func (v *Vault) Write(rel string, data []byte) error {
	abs := v.Abs(rel)
	mode := os.FileMode(0644)
	if info, err := v.fs.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := afero.WriteFile(v.fs, abs, data, mode); err != nil {
		return err
	}
	v.Track(rel)
	return nil
}

func (v *Vault) ModTime(rel string) (time.Time, error) {
	info, err := v.fs.Stat(v.Abs(rel))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Track records that a note exists.
func (v *Vault) Track(rel string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notes[rel] = struct{}{}
}

// Forget drops a note, e.g. after it was removed on disk.
func (v *Vault) Forget(rel string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.notes, rel)
}

// Exists reports whether a note is tracked or present on disk.
func (v *Vault) Exists(rel string) bool {
	v.mu.RLock()
	_, ok := v.notes[rel]
	v.mu.RUnlock()
	if ok {
		return true
	}
	info, err := v.fs.Stat(v.Abs(rel))
	return err == nil && !info.IsDir()
}

// Notes returns all tracked notes, sorted.
func (v *Vault) Notes() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	notes := make([]string, 0, len(v.notes))
	for n := range v.notes {
		notes = append(notes, n)
	}
	sort.Strings(notes)
	return notes
}
