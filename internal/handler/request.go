package handler

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"artgram/internal/httputil"
	"artgram/internal/model"
	"artgram/internal/transport/http/middleware"
)

// formOverhead is the room left for text fields next to an uploaded file.
const formOverhead = 1 << 20

// idParam parses a positive int64 URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// viewerFromContext returns the authenticated user id, or nil for anonymous requests.
func viewerFromContext(r *http.Request) *int64 {
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}

// limitParam parses ?limit=; zero means the service default.
func limitParam(r *http.Request) (int, bool) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(l)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}

// parseMultipart reads a multipart form limited to maxFile plus field overhead.
// It writes the error response and returns false on failure.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxFile int64) bool {
	maxFormSize := maxFile + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		case errors.As(err, &tooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Upload exceeds size limit")
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return false
	}
	return true
}

// formImage returns the named file field as an upload, or nil when absent.
func formImage(r *http.Request, field string) (*model.ImageUpload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	return &model.ImageUpload{
		Reader:      file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}, func() { closeFile(file) }, nil
}

// optionalField returns a pointer to a form value only if the field was sent.
func optionalField(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func formBool(r *http.Request, field string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(r.FormValue(field)))
	return v
}

func closeFile(f multipart.File) {
	if err := f.Close(); err != nil {
		log.Printf("[Handler] Failed to close upload: %v", err)
	}
}

// writeInputError maps validation and upload errors to 400 responses. It
// reports false when err is neither.
func writeInputError(w http.ResponseWriter, err error) bool {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.WriteBadRequestWithCode(w, httputil.ErrCodeValidation, verr.Message)
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds size limit")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrInvalidCursor):
		httputil.WriteBadRequest(w, "Invalid cursor")
	default:
		return false
	}
	return true
}
