// pkg/utils/validation/media.go
package validation

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrFileSize     = errors.New("file size exceeds limit of 25MB")
	ErrFileType     = errors.New("invalid file type. Allowed types: JPG, PNG, WEBP, GIF, MP4")
	ErrFileRequired = errors.New("no file provided")
)

const MaxMediaSize = 25 * 1024 * 1024 // 25MB

var AllowedMediaTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".mp4":  true,
}

func ValidateMedia(file *multipart.FileHeader) error {
	if file == nil {
		return ErrFileRequired
	}

	if file.Size > MaxMediaSize {
		return ErrFileSize
	}

	ext := filepath.Ext(strings.ToLower(file.Filename))
	if !AllowedMediaTypes[ext] {
		return ErrFileType
	}

	return nil
}
