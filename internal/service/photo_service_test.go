package service

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"petbuddies/internal/config"
	"petbuddies/internal/models"
	"petbuddies/internal/storage"
	"petbuddies/internal/testutil"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var photoKeyPattern = regexp.MustCompile(`^pet_photo/[a-zA-Z0-9]{20}\.webp$`)

func TestPhotoService_StoreProducesSquareWebP(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewPhotoService(store, nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		content     []byte
		contentType string
	}{
		{"Landscape JPEG", testutil.TinyJPEG(t, 640, 360), "image/jpeg"},
		{"Portrait PNG", testutil.TinyPNG(t, 120, 300), "image/png"},
		{"No Content Type", testutil.TinyPNG(t, 50, 50), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := svc.Store(ctx, PhotoKindPet, tt.content, tt.contentType)
			require.NoError(t, err)
			assert.Regexp(t, photoKeyPattern, key)

			obj, ok := store.Get(key)
			require.True(t, ok)
			assert.Equal(t, "image/webp", obj.ContentType)

			cfg, err := webp.DecodeConfig(bytes.NewReader(obj.Body))
			require.NoError(t, err)
			assert.Equal(t, 400, cfg.Width)
			assert.Equal(t, 400, cfg.Height)
		})
	}
}

func TestPhotoService_Rejections(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewPhotoService(store, &config.Config{ImageMaxUploadSizeMB: 1})
	ctx := context.Background()

	_, err := svc.Store(ctx, PhotoKindUser, nil, "image/png")
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Store(ctx, PhotoKindUser, []byte(strings.Repeat("a", 2*1024*1024)), "image/png")
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Store(ctx, PhotoKindUser, []byte("plain text, not an image"), "text/plain")
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Store(ctx, PhotoKindUser, testutil.TinyPNG(t, 10, 10), "image/tiff")
	assertCode(t, err, models.CodeValidation)

	assert.Zero(t, store.Len())
}

func TestPhotoService_URLAndRemove(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewPhotoService(store, &config.Config{PhotoURLTTLSeconds: 60})
	ctx := context.Background()

	assert.Empty(t, svc.URL(""))

	key, err := svc.Store(ctx, PhotoKindUser, testutil.TinyPNG(t, 20, 20), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "user_photo/"))
	assert.Equal(t, "memory://"+key+"?expires=60", svc.URL(key))

	svc.Remove(ctx, key)
	assert.Zero(t, store.Len())
	svc.Remove(ctx, "")
}
