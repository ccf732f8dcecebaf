package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/finalquest/itinera/internal/storage"
)

// UploadHandler serves stored finding photos and their thumbnails.
type UploadHandler struct {
	photos *storage.Photos
}

// NewUploadHandler creates a handler over the photo store.
func NewUploadHandler(photos *storage.Photos) *UploadHandler {
	return &UploadHandler{photos: photos}
}

// ServePhoto handles GET /uploads/{filename}.
func (h *UploadHandler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// ServeThumb handles GET /uploads/thumb/{filename}.
func (h *UploadHandler) ServeThumb(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *UploadHandler) serve(w http.ResponseWriter, r *http.Request, thumb bool) {
	abs, err := h.photos.Resolve(chi.URLParam(r, "filename"), thumb)
	if err != nil {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
