package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"math/big"
	"mime"
	"net/http"
	"strings"
	"time"

	"petbuddies/internal/config"
	"petbuddies/internal/middleware"
	"petbuddies/internal/models"
	"petbuddies/internal/observability"
	"petbuddies/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Photo kinds double as object key prefixes.
const (
	PhotoKindUser = "user_photo"
	PhotoKindPet  = "pet_photo"
)

const (
	DefaultPhotoSizePx          = 400
	DefaultPhotoQuality         = 80
	DefaultPhotoURLTTL          = time.Hour
	DefaultImageMaxUploadSizeMB = 10
	photoNameLength             = 20
)

const photoNameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PhotoService turns uploads into square WebP thumbnails in the object store.
type PhotoService struct {
	store              storage.ObjectStore
	sizePx             int
	quality            int
	urlTTL             time.Duration
	maxUploadSizeBytes int64
}

// NewPhotoService returns a PhotoService using cfg for sizes and limits. A nil
// cfg uses the defaults.
func NewPhotoService(store storage.ObjectStore, cfg *config.Config) *PhotoService {
	s := &PhotoService{
		store:              store,
		sizePx:             DefaultPhotoSizePx,
		quality:            DefaultPhotoQuality,
		urlTTL:             DefaultPhotoURLTTL,
		maxUploadSizeBytes: DefaultImageMaxUploadSizeMB * 1024 * 1024,
	}
	if cfg != nil {
		if cfg.PhotoSizePx > 0 {
			s.sizePx = cfg.PhotoSizePx
		}
		if cfg.PhotoQuality > 0 {
			s.quality = cfg.PhotoQuality
		}
		if cfg.PhotoURLTTLSeconds > 0 {
			s.urlTTL = time.Duration(cfg.PhotoURLTTLSeconds) * time.Second
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			s.maxUploadSizeBytes = int64(cfg.ImageMaxUploadSizeMB) * 1024 * 1024
		}
	}
	return s
}

// MaxUploadSizeBytes is the largest accepted upload.
func (s *PhotoService) MaxUploadSizeBytes() int64 {
	return s.maxUploadSizeBytes
}

// Store processes content and uploads it under kind. It returns the object key.
func (s *PhotoService) Store(ctx context.Context, kind string, content []byte, contentType string) (string, error) {
	start := time.Now()
	defer func() {
		observability.PhotoProcessingSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := http.DetectContentType(content)
	if !isAllowedImageMIME(detected) {
		return "", models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(contentType); strings.HasPrefix(provided, "image/") && !isAllowedImageMIME(provided) {
		return "", models.NewValidationError("Unsupported image format")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	thumb := squareThumbnail(decoded, s.sizePx)
	encoded, err := encodeWebP(thumb, s.quality)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name, err := randomPhotoName()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	key := fmt.Sprintf("%s/%s.webp", kind, name)
	if err := s.store.Put(ctx, key, encoded, "image/webp"); err != nil {
		return "", models.NewInternalError(fmt.Errorf("upload %s: %w", key, err))
	}
	return key, nil
}

// Remove deletes an object. Failures are logged; a stale object is harmless.
func (s *PhotoService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete photo", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// URL returns a presigned link to key, or "" when key is empty or signing fails.
func (s *PhotoService) URL(key string) string {
	if key == "" {
		return ""
	}
	u, err := s.store.PresignGet(key, s.urlTTL)
	if err != nil {
		middleware.Logger.Warn("failed to presign photo", slog.String("key", key), slog.String("error", err.Error()))
		return ""
	}
	return u
}

// squareThumbnail centre-crops src to a square and scales it to size x size.
func squareThumbnail(src image.Image, size int) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	cropped := cropToRect(src, x, y, side, side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), xdraw.Over, nil)
	return dst
}

func cropToRect(src image.Image, x, y, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func randomPhotoName() (string, error) {
	var sb strings.Builder
	sb.Grow(photoNameLength)
	limit := big.NewInt(int64(len(photoNameAlphabet)))
	for i := 0; i < photoNameLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(photoNameAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
