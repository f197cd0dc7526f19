package blobstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/blobstore"
	"social-publisher/infrastructure/configuration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStore_Open(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer blob-token", r.Header.Get("Authorization"))
		if r.URL.EscapedPath() != "/media/my%20clip.mp4" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	store := blobstore.NewHTTPStore(configuration.BlobStore{BaseURL: srv.URL + "/", Token: "blob-token"}, srv.Client())

	rc, info, err := store.Open(context.Background(), "media/my clip.mp4")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "bytes", string(b))
	assert.Equal(t, "video/mp4", info.ContentType)
	assert.Equal(t, int64(5), info.Size)

	_, _, err = store.Open(context.Background(), "missing.mp4")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestHTTPStore_PublicURL(t *testing.T) {
	store := blobstore.NewHTTPStore(configuration.BlobStore{BaseURL: "http://internal", PublicBaseURL: "https://cdn.example.com/"}, nil)
	u, err := store.PublicURL(context.Background(), "media/a b.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/a%20b.mp4", u)

	_, err = store.PublicURL(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrValidation)
}
