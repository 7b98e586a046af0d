package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alex-zharinov/hw05-final/internal/config"
	"github.com/alex-zharinov/hw05-final/internal/models"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaRoot            = "media"
	DefaultImageMaxUploadSizeMB = 5
	// PostImageDir is the directory under the media root that holds post images.
	PostImageDir = "posts"
)

// MaxImagePixels bounds width*height of an upload before it is decoded.
const MaxImagePixels = 89_478_485

const invalidImageMessage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// ImageUpload is a file submitted with a post form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// CheckedImage is an upload that passed validation and is ready to be stored.
type CheckedImage struct {
	upload ImageUpload
	format string
}

// ImageService validates post images and keeps them under MEDIA_ROOT/posts.
type ImageService struct {
	mediaRoot          string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaRoot := DefaultMediaRoot
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaRoot != "" {
			mediaRoot = cfg.MediaRoot
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		mediaRoot:          mediaRoot,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaRoot returns the directory uploaded files are served from.
func (s *ImageService) MediaRoot() string {
	return s.mediaRoot
}

// Check sniffs and decodes the upload. The returned message is suitable for a form field error.
func (s *ImageService) Check(in ImageUpload) (*CheckedImage, string) {
	if len(in.Content) == 0 {
		return nil, "The submitted file is empty."
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, fmt.Sprintf("File too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024))
	}

	detected := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detected) {
		return nil, invalidImageMessage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return nil, invalidImageMessage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Sprintf("Image too large (max %d pixels).", MaxImagePixels)
	}

	_, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, invalidImageMessage
	}
	if decodedFormatToExt(format) == "" {
		return nil, invalidImageMessage
	}

	return &CheckedImage{upload: in, format: format}, ""
}

// Store writes a checked image and returns its path relative to the media root ("posts/<name>").
// An existing file with the same name is never overwritten.
func (s *ImageService) Store(_ context.Context, img *CheckedImage) (string, error) {
	if img == nil {
		return "", errors.New("no image to store")
	}
	dir := filepath.Join(s.mediaRoot, PostImageDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", models.NewInternalError(err)
	}

	base := filepath.Base(strings.ReplaceAll(img.upload.Filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	if !isImageExt(ext) {
		ext = decodedFormatToExt(img.format)
	}
	stem := sanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "image"
	}

	name := stem + ext
	for attempt := 0; attempt < 5; attempt++ {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			name = stem + "_" + uuid.NewString()[:7] + ext
			continue
		}
		if err != nil {
			return "", models.NewInternalError(err)
		}
		if _, err := f.Write(img.upload.Content); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return "", models.NewInternalError(err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(f.Name())
			return "", models.NewInternalError(err)
		}
		return path.Join(PostImageDir, name), nil
	}
	return "", models.NewInternalError(fmt.Errorf("could not find a free name for %q", base))
}

// Remove deletes a stored image. Missing files are ignored.
func (s *ImageService) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	full, ok := s.resolve(rel)
	if !ok {
		return fmt.Errorf("image path %q escapes the media root", rel)
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *ImageService) resolve(rel string) (string, bool) {
	clean := path.Clean("/" + rel)
	if !strings.HasPrefix(clean, "/"+PostImageDir+"/") {
		return "", false
	}
	return filepath.Join(s.mediaRoot, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), true
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 80 {
		out = out[:80]
	}
	return out
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp":
		return true
	case "application/octet-stream":
		// TIFF is not sniffed by net/http; image.Decode decides.
		return true
	default:
		return false
	}
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return true
	default:
		return false
	}
}

func decodedFormatToExt(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg":
		return ".jpg"
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	case "webp":
		return ".webp"
	case "bmp":
		return ".bmp"
	case "tiff":
		return ".tiff"
	default:
		return ""
	}
}
