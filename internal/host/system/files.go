package system

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/alexisbeaulieu97/brokerhost/internal/host"
	hosterrors "github.com/alexisbeaulieu97/brokerhost/pkg/errors"
)

// Files implements the filesystem probes and mutations on the local disk.
type Files struct{}

var _ host.FileSystem = Files{}

// PathExists reports whether path exists. Permission problems are errors,
// absence is not.
func (Files) PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, hosterrors.NewProbeError(path, err)
}

// FileContains reports whether path contains substr. Files written by Windows
// tools may carry a UTF-8 or UTF-16 byte order mark, so content is decoded
// before matching.
func (Files) FileContains(path, substr string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, hosterrors.NewReadError(path, err)
	}
	defer f.Close()

	decoded := transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return false, hosterrors.NewReadError(path, err)
	}
	return strings.Contains(string(data), substr), nil
}

// EnsureDir creates path and its parents.
func (Files) EnsureDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false, &fs.PathError{Op: "mkdir", Path: path, Err: errors.New("exists and is not a directory")}
		}
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, err
	}
	return true, nil
}

// Touch creates an empty file at path when none exists. An existing file is
// left untouched, timestamps included.
func (Files) Touch(path string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, f.Close()
}
