package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// StaticHandler serves files below a public directory.
type StaticHandler struct {
	root string
}

// NewStaticHandler creates a handler rooted at dir.
func NewStaticHandler(dir string) *StaticHandler {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &StaticHandler{root: abs}
}

// safePath resolves a request path under the root and rejects traversal.
func (h *StaticHandler) safePath(rel string) (string, error) {
	cleaned := filepath.Clean("/" + rel)
	abs := filepath.Join(h.root, cleaned)
	if !strings.HasPrefix(abs, h.root+string(os.PathSeparator)) && abs != h.root {
		return "", fmt.Errorf("path escapes public directory")
	}
	return abs, nil
}

// ServeFile handles GET /public/*. Directories are listed.
func (h *StaticHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.safePath(chi.URLParam(r, "*"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	http.ServeFile(w, r, abs)
}
