package writer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// stageFile writes data to a new temp file next to path. The temp name keeps
// path's extension so format-sensitive backends accept it. The caller owns
// the returned file and must remove it unless it is renamed into place.
func stageFile(path string, data []byte, mode fs.FileMode) (string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)

	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, ext)+".*"+ext)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	name := tmp.Name()

	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", err
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("write staging file: %w", err))
	}
	if err := tmp.Chmod(mode.Perm()); err != nil {
		return fail(fmt.Errorf("chmod staging file: %w", err))
	}
	// Ensure data is written to disk
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close staging file: %w", err)
	}
	return name, nil
}

// syncFile flushes a file changed by an external backend.
func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	return f.Close()
}
