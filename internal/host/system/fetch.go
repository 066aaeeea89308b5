package system

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	"github.com/alexisbeaulieu97/brokerhost/internal/logger"
)

// Fetcher downloads remote artifacts over HTTP.
type Fetcher struct {
	Client *http.Client
	Log    *logger.Logger
	// BackupDir holds rotated copies of replaced artifacts. Empty keeps them
	// next to the artifact.
	BackupDir string
}

var _ host.Fetcher = (*Fetcher)(nil)

// Fetch downloads url to dest. With ConditionalGet the request carries the
// modification time of an existing dest and a 304 leaves it alone. A body
// identical to the current file is not a change. Replaced files are rotated
// into <name>.1 .. <name>.N backups under BackupDir.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string, opts host.FetchOptions) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	existing, err := os.Stat(dest)
	switch {
	case err == nil:
		if opts.ConditionalGet {
			req.Header.Set("If-Modified-Since", existing.ModTime().UTC().Format(http.TimeFormat))
		}
	case errors.Is(err, fs.ErrNotExist):
		existing = nil
	default:
		return false, err
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return false, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && existing != nil {
		f.Log.With("url", url).Debug("remote artifact not modified")
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())

	hash := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hash), resp.Body); err != nil {
		tmp.Close()
		return false, fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}

	modified := time.Time{}
	if opts.KeepLastModified {
		if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
			modified = lm
		}
	}

	if existing != nil {
		same, err := sameDigest(dest, hash.Sum(nil))
		if err != nil {
			return false, err
		}
		if same {
			if !modified.IsZero() {
				_ = os.Chtimes(dest, modified, modified)
			}
			return false, nil
		}
		if err := rotateBackups(dest, f.backupBase(dest), opts.Backups); err != nil {
			return false, err
		}
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return false, err
	}
	if !modified.IsZero() {
		if err := os.Chtimes(dest, modified, modified); err != nil {
			return false, err
		}
	}

	f.Log.WithFields(map[string]any{"url": url, "dest": dest}).Info("artifact downloaded")
	return true, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) backupBase(dest string) string {
	if f.BackupDir == "" {
		return dest
	}
	return filepath.Join(f.BackupDir, filepath.Base(dest))
}

func sameDigest(path string, digest []byte) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return false, err
	}
	return bytes.Equal(hash.Sum(nil), digest), nil
}

// rotateBackups shifts base.1 .. base.(n-1) up by one and moves dest to
// base.1. With n <= 0 the current file is simply replaced.
func rotateBackups(dest, base string, n int) error {
	if n <= 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return err
	}
	for i := n - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", base, i)
		to := fmt.Sprintf("%s.%d", base, i+1)
		if err := os.Rename(from, to); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return moveFile(dest, base+".1")
}

// moveFile renames, falling back to copy and remove when the backup
// directory is on another volume.
func moveFile(from, to string) error {
	if err := os.Rename(from, to); err == nil {
		return nil
	}
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(to)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	src.Close()
	return os.Remove(from)
}
