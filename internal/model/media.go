package model

import "errors"

const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024  // 5MB limit per media plan
	MaxMediaSizeBytes  = 50 * 1024 * 1024 // 50MB for post/chat uploads (videos)
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	ChatMediaFolder    = "chats"
	ForumMediaFolder   = "forum"
	AvatarExt          = ".jpg"
	AvatarCacheControl = "public, max-age=31536000" // 1 year
	MediaCacheControl  = "public, max-age=31536000"
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

// Supported video content types for post/chat uploads
const (
	ContentTypeMP4  = "video/mp4"
	ContentTypeMOV  = "video/quicktime"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

var allowedVideoTypes = map[string]struct{}{
	ContentTypeMP4: {},
	ContentTypeMOV: {},
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
	ErrInvalidMediaType = errors.New("unsupported media content type")
)

// UploadResult represents the uploaded object location
// URL is the public-facing URL (using R2 public endpoint)
// Key is the object key inside the bucket (useful for future deletes)
type UploadResult struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Type string `json:"type"` // MediaTypeImage or MediaTypeVideo
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// MediaTypeForContentType maps an upload content type onto the closed
// image/video variant, or returns ErrInvalidMediaType.
func MediaTypeForContentType(contentType string) (string, error) {
	if _, ok := allowedImageTypes[contentType]; ok {
		return MediaTypeImage, nil
	}
	if _, ok := allowedVideoTypes[contentType]; ok {
		return MediaTypeVideo, nil
	}
	return "", ErrInvalidMediaType
}
