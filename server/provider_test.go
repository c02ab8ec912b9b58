package server

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// memProvider is an in-memory files.Provider for tests. It counts storage
// calls so tests can assert that validation happens before any access.
type memProvider struct {
	files       map[string][]byte
	existsCalls int
	readCalls   int
}

func newMemProvider(files map[string]string) *memProvider {
	m := &memProvider{files: map[string][]byte{}}
	for path, content := range files {
		m.files[filepath.Clean(path)] = []byte(content)
	}
	return m
}

func (m *memProvider) Exists(path string) bool {
	m.existsCalls++
	_, ok := m.files[filepath.Clean(path)]
	return ok
}

func (m *memProvider) Read(path string) ([]byte, error) {
	m.readCalls++
	content, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return content, nil
}

func (m *memProvider) ReadStream(path string) (io.ReadCloser, error) {
	content, err := m.Read(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *memProvider) ListFolders(path string) ([]string, error) {
	prefix := filepath.Clean(path) + string(filepath.Separator)
	seen := map[string]bool{}
	for file := range m.files {
		if !strings.HasPrefix(file, prefix) {
			continue
		}
		rest := strings.TrimPrefix(file, prefix)
		if idx := strings.IndexByte(rest, byte(filepath.Separator)); idx > 0 {
			seen[filepath.Join(path, rest[:idx])] = true
		}
	}
	var out []string
	for folder := range seen {
		out = append(out, folder)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memProvider) ListFiles(path, suffix string) ([]string, error) {
	prefix := filepath.Clean(path) + string(filepath.Separator)
	var out []string
	for file := range m.files {
		if !strings.HasPrefix(file, prefix) {
			continue
		}
		rest := strings.TrimPrefix(file, prefix)
		if strings.ContainsRune(rest, filepath.Separator) {
			continue
		}
		if suffix == "" || strings.HasSuffix(rest, suffix) {
			out = append(out, file)
		}
	}
	sort.Strings(out)
	return out, nil
}
