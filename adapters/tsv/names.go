package tsv

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"selectcms/domain/core"
)

// maxLinkAttempts bounds the retries when another writer takes a name first
const maxLinkAttempts = 100

// NextAvailableName returns base when it is not in listing, otherwise the
// first of name_1.ext, name_2.ext, ... that is free.
func NextAvailableName(listing []string, base string) string {
	taken := make(map[string]struct{}, len(listing))
	for _, n := range listing {
		taken[n] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// writeTemp writes a hidden temporary file in dir and returns its path
func writeTemp(dir, base string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// CreateExclusive writes a new file named base (or the next available name)
// in dir. The content is written to a temporary file first and then linked
// into place, so the final name is never partially written and an existing
// file is never replaced.
func CreateExclusive(dir, base string, write func(io.Writer) error) (string, error) {
	tmp, err := writeTemp(dir, base, write)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrOutputIO, base, err)
	}
	defer os.Remove(tmp)

	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrOutputIO, err)
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}

		path := filepath.Join(dir, NextAvailableName(names, base))
		err = os.Link(tmp, path)
		if err == nil {
			return path, nil
		}
		if !stderrors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %w", core.ErrOutputIO, err)
		}
	}
	return "", fmt.Errorf("%w: no free name for %s after %d attempts", core.ErrOutputIO, base, maxLinkAttempts)
}

// ReplaceFile writes dir/name through a temporary file and renames it into
// place, replacing any previous version.
func ReplaceFile(dir, name string, write func(io.Writer) error) (string, error) {
	tmp, err := writeTemp(dir, name, write)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrOutputIO, name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: %w", core.ErrOutputIO, err)
	}
	return path, nil
}
