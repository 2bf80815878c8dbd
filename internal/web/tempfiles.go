package web

// tempfiles.go manages the files a single upload request puts on disk.
//
// Uploaded tables and the generated output are written under the configured
// temp directory with random names. The request owns them: once the response
// has been sent, removeAfter deletes them after a grace delay. Removal
// failures are logged and otherwise ignored.

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/csvmatch/internal/logging"
	"github.com/google/uuid"
)

type tempFiles struct {
	dir   string
	paths []string
}

func newTempFiles(dir string) *tempFiles {
	if dir == "" {
		dir = os.TempDir()
	}
	return &tempFiles{dir: dir}
}

// create opens a new uniquely named file and tracks it for removal.
func (t *tempFiles) create(suffix string) (*os.File, error) {
	path := filepath.Join(t.dir, "csvmatch-"+uuid.NewString()+suffix)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	t.paths = append(t.paths, path)
	return f, nil
}

// spool copies src into a new temp file and returns its path.
func (t *tempFiles) spool(src io.Reader) (string, error) {
	f, err := t.create(".csv")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", fmt.Errorf("spool upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("spool upload: %w", err)
	}
	return f.Name(), nil
}

// removeAfter deletes every tracked file once delay has elapsed. A zero delay
// removes them immediately.
func (t *tempFiles) removeAfter(ctx context.Context, delay time.Duration) {
	if len(t.paths) == 0 {
		return
	}
	paths := append([]string(nil), t.paths...)
	logger := logging.FromContext(ctx)

	remove := func() {
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to remove temp file", "path", p, "error", err)
			}
		}
	}

	if delay <= 0 {
		remove()
		return
	}
	time.AfterFunc(delay, remove)
}
