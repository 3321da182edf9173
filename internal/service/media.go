package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"artgram/internal/blob"
	domain "artgram/internal/model"
)

// MediaUploader normalizes images and stores them. Uploads happen before the
// owning row is written; callers delete the object again if that write fails.
type MediaUploader interface {
	UploadPostImage(ctx context.Context, img *domain.ImageUpload) (*domain.UploadResult, error)
	UploadAvatar(ctx context.Context, img *domain.ImageUpload) (*domain.UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// MediaService re-encodes uploads as JPEG and writes them to the blob store.
type MediaService struct {
	store blob.Store
}

func NewMediaService(store blob.Store) *MediaService {
	return &MediaService{store: store}
}

// UploadPostImage enforces size/type, fits the image within 1080x1080 and stores it.
func (s *MediaService) UploadPostImage(ctx context.Context, img *domain.ImageUpload) (*domain.UploadResult, error) {
	data, err := readAndValidateImage(img, domain.MaxPostImageSize)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := encodeJPEG(data, func(src image.Image) image.Image {
		b := src.Bounds()
		if b.Dx() <= domain.PostImageMaxSide && b.Dy() <= domain.PostImageMaxSide {
			return src
		}
		return imaging.Fit(src, domain.PostImageMaxSide, domain.PostImageMaxSide, imaging.Lanczos)
	})
	if err != nil {
		return nil, err
	}

	return s.put(ctx, domain.PostMediaFolder, jpegBytes)
}

// UploadAvatar enforces size/type, crops to 200x200 and stores it.
func (s *MediaService) UploadAvatar(ctx context.Context, img *domain.ImageUpload) (*domain.UploadResult, error) {
	data, err := readAndValidateImage(img, domain.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := encodeJPEG(data, func(src image.Image) image.Image {
		return imaging.Fill(src, domain.AvatarWidth, domain.AvatarHeight, imaging.Center, imaging.Lanczos)
	})
	if err != nil {
		return nil, err
	}

	return s.put(ctx, domain.AvatarFolder, jpegBytes)
}

// Delete removes an object by key. An empty key is a no-op.
func (s *MediaService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.store.Delete(ctx, key)
}

func (s *MediaService) put(ctx context.Context, folder string, body []byte) (*domain.UploadResult, error) {
	key := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), domain.ImageExt)
	if err := s.store.Put(ctx, key, body, domain.ContentTypeJPEG, domain.ImageCacheControl); err != nil {
		return nil, err
	}
	return &domain.UploadResult{URL: s.store.URL(key), Key: key}, nil
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(img *domain.ImageUpload, maxSize int64) ([]byte, error) {
	if img == nil || img.Reader == nil {
		return nil, domain.ErrInvalidImageType
	}
	if img.Size > maxSize {
		return nil, domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(img.Reader, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, domain.ErrFileTooLarge
	}

	contentType := img.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !domain.IsAllowedImageType(contentType) {
		return nil, domain.ErrInvalidImageType
	}

	return data, nil
}

// encodeJPEG decodes data, applies resize, and encodes the result as JPEG.
func encodeJPEG(data []byte, resize func(image.Image) image.Image) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImageType, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resize(src), imaging.JPEG, imaging.JPEGQuality(domain.ImageJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
