package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"artgram/internal/model"
)

func TestMediaHandler_Serve(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "posts"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "posts", "a.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewMediaHandler("/media", dir)

	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/media/posts/a.jpg", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "jpeg" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "jpeg")
	}
	if got := rec.Header().Get("Cache-Control"); got != model.ImageCacheControl {
		t.Errorf("Cache-Control = %q", got)
	}

	rec = httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/media/posts/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("directory listing: status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/media/posts/missing.jpg", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file: status = %d, want 404", rec.Code)
	}
}

func TestWriteInputError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		handled bool
		code    int
	}{
		{"validation", &model.ValidationError{Field: "title", Message: "title is required"}, true, http.StatusBadRequest},
		{"too large", model.ErrFileTooLarge, true, http.StatusBadRequest},
		{"bad type", model.ErrInvalidImageType, true, http.StatusBadRequest},
		{"bad cursor", model.ErrInvalidCursor, true, http.StatusBadRequest},
		{"other", model.ErrPostNotFound, false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if got := writeInputError(rec, tt.err); got != tt.handled {
				t.Fatalf("handled = %t, want %t", got, tt.handled)
			}
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
		})
	}
}
