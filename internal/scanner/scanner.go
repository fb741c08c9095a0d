// scanner is used to scan a vault for notes.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"anchorlink/internal/vault"

	"github.com/spf13/afero"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("anchorlink.scanner")

const workers = 4

// Scan walks the vault. Ignored and hidden directories are skipped
// entirely. Every note is read and handed to callback with its vault
// path. Scan only returns once all callbacks have completed; it returns
// early with the context error when ctx is cancelled.
func Scan(
	ctx context.Context,
	v *vault.Vault,
	callback func(path string, document []byte),
) error {
	fileCh := make(chan string, 100)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range fileCh {
				data, err := v.Read(path)
				if err != nil {
					log.Errorf("read error: %s: %v", path, err)
					continue
				}
				callback(path, data)
			}
		}()
	}

	log.Debugf("starting walk at %q", v.Root())
	err := afero.Walk(v.Fs(), v.Root(), func(abs string, info os.FileInfo, err error) error {
		if err != nil {
			log.Debugf("walk error: %v", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if info.IsDir() {
			if abs != v.Root() && v.IgnoreDir(abs) {
				return filepath.SkipDir
			}
			return nil
		}
		if !v.IsNote(abs) {
			return nil
		}

		rel, err := v.Rel(abs)
		if err != nil {
			return nil
		}
		select {
		case fileCh <- rel:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	close(fileCh)
	wg.Wait()
	return err
}
