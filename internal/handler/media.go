package handler

import (
	"net/http"
	"strings"

	"artgram/internal/model"
)

// MediaHandler serves objects written by the local blob store. With R2
// configured, images are served from the bucket's public URL instead.
type MediaHandler struct {
	files http.Handler
}

// NewMediaHandler serves dir under prefix (e.g. "/media").
func NewMediaHandler(prefix, dir string) *MediaHandler {
	return &MediaHandler{
		files: http.StripPrefix(strings.TrimSuffix(prefix, "/"), http.FileServer(http.Dir(dir))),
	}
}

// Serve handles GET /media/*
// Object keys are random and never rewritten, so responses are cached like R2's.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", model.ImageCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	h.files.ServeHTTP(w, r)
}
