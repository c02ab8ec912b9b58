package server

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/polterguy/magic.endpoint-sub000/pkg/files"
	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
)

// MimeMap is the process-wide extension→content-type table for static
// serving. It is runtime-extensible, so reads and writes are guarded; this is
// the one piece of shared mutable state in the subsystem.
type MimeMap struct {
	mu    sync.RWMutex
	types map[string]string
}

const fallbackMime = "application/octet-stream"

// NewMimeMap returns a table seeded with the common web types.
func NewMimeMap() *MimeMap {
	return &MimeMap{types: map[string]string{
		".html": "text/html; charset=utf-8",
		".htm":  "text/html; charset=utf-8",
		".css":  "text/css; charset=utf-8",
		".js":   "text/javascript; charset=utf-8",
		".mjs":  "text/javascript; charset=utf-8",
		".json": "application/json",
		".txt":  "text/plain; charset=utf-8",
		".xml":  "application/xml",
		".csv":  "text/csv; charset=utf-8",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".svg":  "image/svg+xml",
		".webp": "image/webp",
		".ico":  "image/x-icon",
		".woff": "font/woff",
		".woff2": "font/woff2",
		".pdf":  "application/pdf",
		".mp4":  "video/mp4",
		".hl":   lambda.ContentType,
	}}
}

// Get returns the content type for a file extension (with leading dot),
// falling back to application/octet-stream.
func (m *MimeMap) Get(ext string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.types[strings.ToLower(ext)]; ok {
		return t
	}
	return fallbackMime
}

// Set adds or replaces a mapping at runtime.
func (m *MimeMap) Set(ext, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[strings.ToLower(ext)] = contentType
}

// Delete removes a mapping, restoring the fallback for that extension.
func (m *MimeMap) Delete(ext string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.types, strings.ToLower(ext))
}

// staticHandler serves files from the static root. Markdown files render to
// HTML, and an HTML page with a sibling "<file>.hl" code-behind is served
// through the composer/binder/executor pipeline with the page preloaded as
// response content, so the script can decorate or replace it.
type staticHandler struct {
	root     string
	fs       files.Provider
	mimes    *MimeMap
	composer *Composer
	binder   Binder
	executor *Executor
	markdown goldmark.Markdown
	logger   zerolog.Logger
}

func newStaticHandler(root string, fs files.Provider, mimes *MimeMap, executor *Executor, logger zerolog.Logger) *staticHandler {
	return &staticHandler{
		root:     root,
		fs:       fs,
		mimes:    mimes,
		composer: NewComposer(root, fs),
		executor: executor,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger,
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path
	if containsPathTraversal(urlPath) {
		http.Error(w, "400 Bad Request", http.StatusBadRequest)
		return
	}
	if urlPath == "/" || strings.HasSuffix(urlPath, "/") {
		urlPath += "index.html"
	}

	path := filepath.Join(h.root, filepath.FromSlash(urlPath))
	if !h.fs.Exists(path) {
		http.NotFound(w, r)
		return
	}

	ext := filepath.Ext(path)
	if ext == ".html" && h.fs.Exists(path+".hl") {
		h.serveMixin(w, r, path)
		return
	}

	content, err := h.fs.Read(path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("reading static file")
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}

	if ext == ".md" {
		var buf bytes.Buffer
		if err := h.markdown.Convert(content, &buf); err != nil {
			h.logger.Error().Err(err).Str("path", path).Msg("rendering markdown")
			http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
		return
	}

	w.Header().Set("Content-Type", h.mimes.Get(ext))
	w.Write(content)
}

// serveMixin executes the page's code-behind with the page HTML preloaded as
// response content, reusing the interceptor and binding pipeline.
func (h *staticHandler) serveMixin(w http.ResponseWriter, r *http.Request, path string) {
	page, err := h.fs.Read(path)
	if err != nil {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	src, err := h.fs.Read(path + ".hl")
	if err != nil {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	script, err := lambda.Parse(src)
	if err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("parsing code-behind")
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	script, err = h.composer.Apply(script, path+".hl")
	if err != nil {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}

	req := requestFrom(r, nil)
	if err := h.binder.Bind(script, req.Query, nil); err != nil {
		writeDispatchError(w, h.logger, err, false)
		return
	}

	res := &Response{
		Status:  http.StatusOK,
		Headers: map[string]string{"Content-Type": "text/html; charset=utf-8"},
		Content: string(page),
	}
	if err := h.executor.ExecuteInto(r.Context(), script, req, res); err != nil {
		writeDispatchError(w, h.logger, err, false)
		return
	}
	writeResponse(w, res)
}

// containsPathTraversal rejects paths with ".." segments.
func containsPathTraversal(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
