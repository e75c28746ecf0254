package source

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// errStopped ends a walk when the consumer stops iterating.
var errStopped = errors.New("iteration stopped")

// ErrNoFiles is returned when a configured pattern matches nothing.
var ErrNoFiles = errors.New("no files match")

// expand resolves glob patterns into a sorted, de-duplicated file list.
func expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w %q", ErrNoFiles, p)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// walk calls fn for every file named by paths. Zip archives are opened and
// their members with extension ext are visited, including members of zips
// nested inside them.
func walk(paths []string, ext string, fn func(name string, r io.Reader) error) error {
	files, err := expand(paths)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := walkFile(path, ext, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkFile(path, ext string, fn func(name string, r io.Reader) error) error {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return fmt.Errorf("open archive %s: %w", path, err)
		}
		defer zr.Close()
		return walkZip(&zr.Reader, ext, fn)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return fn(filepath.Base(path), f)
}

func walkZip(zr *zip.Reader, ext string, fn func(name string, r io.Reader) error) error {
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(zf.Name)) {
		case ".zip":
			data, err := readMember(zf)
			if err != nil {
				return err
			}
			inner, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return fmt.Errorf("open nested archive %s: %w", zf.Name, err)
			}
			if err := walkZip(inner, ext, fn); err != nil {
				return err
			}
		case ext:
			if err := visitMember(zf, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func visitMember(zf *zip.File, fn func(name string, r io.Reader) error) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer rc.Close()
	return fn(filepath.Base(zf.Name), rc)
}

func readMember(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", zf.Name, err)
	}
	return data, nil
}
