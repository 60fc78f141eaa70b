package api

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/origincreativegroup/folio/internal/studio"
)

// FileHandler serves project files (assets, deliverables, narrative
// sources) straight from the studio. Serving is read-only; files change
// on disk, never through this handler.
type FileHandler struct {
	dir *studio.Dir
}

// NewFileHandler creates a handler rooted at the studio directory.
func NewFileHandler(dir *studio.Dir) *FileHandler {
	return &FileHandler{dir: dir}
}

// ServeFile handles GET /api/projects/{folder}/files/*.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	folder := folderParam(r)
	rel := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(rel); err == nil {
		rel = decoded
	}
	if folder == "" || rel == "" {
		http.Error(w, "file path is required", http.StatusBadRequest)
		return
	}

	// The studio directory rejects anything that resolves outside its root.
	abs, err := h.dir.Abs(filepath.Join(folder, filepath.FromSlash(rel)))
	if err != nil {
		http.Error(w, "invalid file path", http.StatusBadRequest)
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
