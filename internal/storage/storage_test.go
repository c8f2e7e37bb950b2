package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"petbuddies/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Store_PresignGet(t *testing.T) {
	t.Parallel()

	store, err := NewS3Store(S3Config{
		Endpoint:       "http://localhost:9000",
		Region:         "us-east-1",
		AccessKey:      "AKIAEXAMPLE",
		SecretKey:      "secret",
		Bucket:         "upload",
		ForcePathStyle: true,
	})
	require.NoError(t, err)

	raw, err := store.PresignGet("pet_photo/abc.webp", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/upload/pet_photo/abc.webp", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        string
}

func TestS3Store_PutAndDelete(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, recordedRequest{r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(body)})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3Store(S3Config{
		Endpoint:       srv.URL,
		Region:         "us-east-1",
		AccessKey:      "AKIAEXAMPLE",
		SecretKey:      "secret",
		Bucket:         "upload",
		ForcePathStyle: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "user_photo/x.webp", []byte("webp-bytes"), "image/webp"))
	require.NoError(t, store.Delete(ctx, "user_photo/x.webp"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, recordedRequest{http.MethodPut, "/upload/user_photo/x.webp", "image/webp", "webp-bytes"}, seen[0])
	assert.Equal(t, http.MethodDelete, seen[1].method)
	assert.Equal(t, "/upload/user_photo/x.webp", seen[1].path)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "k", []byte("v"), "text/plain"))
	obj, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(obj.Body))

	url, err := m.PresignGet("k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "memory://k?expires=3600", url)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.ErrorIs(t, m.Delete(ctx, "k"), ErrNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestNew_SelectsDriver(t *testing.T) {
	t.Parallel()

	s, err := New(&config.Config{StorageDriver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(&config.Config{StorageDriver: "s3", S3Bucket: "upload", S3Region: "us-east-1"})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, s)

	_, err = New(&config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)
}
