package model

import (
	"errors"
	"io"
)

const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024 // 5MB
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	ImageExt           = ".jpg"
	ImageCacheControl  = "public, max-age=31536000" // 1 year
	ImageJPEGQuality   = 85
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
)

// ImageUpload is an image received from a client, not yet normalized or stored.
// ContentType may be empty, in which case it is sniffed from the bytes.
type ImageUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// UploadResult is the stored object's public URL and its key in the blob store.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
