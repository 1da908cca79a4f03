package externalize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/files", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.Equal(t, "text/plain", r.Header.Get("X-File-Type"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "message-m1.txt", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"url":"https://cdn.example/p/abc"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	url, err := c.UploadText(context.Background(), "big message body", "message-m1.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/p/abc", url)
}

func TestUploadTextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	_, err := c.UploadText(context.Background(), "body", "f.txt")
	assert.Error(t, err)
}

func TestShortenURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/urls", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"shortCode":"xyz"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	url, err := c.ShortenURL(context.Background(), "https://files.example/a.png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/u/xyz", url)
}

func TestShortenURLRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	_, err := c.ShortenURL(context.Background(), "https://files.example/a.png")
	assert.ErrorIs(t, err, ErrShortenRejected)
}
