// Package files is the storage capability boundary for the dispatcher.
// Everything that touches disk goes through a Provider, so tests can count
// or fake storage access and future backends stay possible.
package files

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Provider exposes the file operations the dispatcher needs. Read returns
// whole files; ReadStream hands back a stream whose ownership transfers to
// the caller, covering the async/streaming read path.
type Provider interface {
	Exists(path string) bool
	Read(path string) ([]byte, error)
	ReadStream(path string) (io.ReadCloser, error)
	ListFolders(path string) ([]string, error)
	ListFiles(path, suffix string) ([]string, error)
}

// OS is the local-disk Provider.
type OS struct{}

// Exists reports whether path names an existing regular file.
func (OS) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Read returns the file's contents.
func (OS) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ReadStream opens the file for streaming; the caller closes it.
func (OS) ReadStream(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// ListFolders returns the absolute paths of the direct sub-folders of path,
// sorted by name.
func (OS) ListFolders(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// ListFiles returns the absolute paths of the files directly under path whose
// names end in suffix, sorted by name. An empty suffix matches every file.
func (OS) ListFiles(path, suffix string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if suffix == "" || strings.HasSuffix(e.Name(), suffix) {
			out = append(out, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
