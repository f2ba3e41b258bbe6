// Package scan finds photo files below a directory or in a list file.
package scan

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

type Options struct {
	MaxDepth int

	Extensions []string
}

func DefaultOptions() Options {
	return Options{
		MaxDepth:   -1,
		Extensions: DefaultExtensions(),
	}
}

// DefaultExtensions returns the photo extensions the extractor visits.
func DefaultExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".heic", ".heif", ".hif", ".tif", ".tiff"}
}

// Scan returns the slash-separated paths, relative to root, of every file
// with a recognized extension. Files and directories whose names start with
// a dot are skipped. Paths are in natural order, so IMG_2 sorts before
// IMG_10.
func Scan(fsys fs.FS, root string, opts Options) ([]string, error) {
	if opts.MaxDepth < -1 {
		return nil, fs.ErrInvalid
	}

	exts := normalizeExts(opts.Extensions)

	var matches []string

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Hidden entries, including the writer's staging files.
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if opts.MaxDepth >= 0 {
				rel, relErr := filepath.Rel(root, path)
				if relErr != nil {
					return relErr
				}
				if rel == "." {
					return nil
				}
				if depth(rel) > opts.MaxDepth {
					return fs.SkipDir
				}
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		if opts.MaxDepth >= 0 && depth(rel) > opts.MaxDepth {
			return nil
		}

		if !exts[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}

		matches = append(matches, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return natural.Less(matches[i], matches[j])
	})
	return matches, nil
}

// ReadList parses a list of target files, one path per line. Blank lines and
// lines starting with '#' are ignored; order is preserved.
func ReadList(r io.Reader) ([]string, error) {
	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\uFEFF"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}
	return paths, nil
}

func normalizeExts(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, ext := range exts {
		e := strings.TrimSpace(strings.ToLower(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[e] = true
	}
	return m
}

func depth(rel string) int {
	rel = filepath.Clean(rel)
	if rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/")
}
