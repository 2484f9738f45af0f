package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBinary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "model/gltf-binary")
		w.Write([]byte("glTF-binary-payload"))
	}))
	defer srv.Close()

	result, err := FetchBinary(context.Background(), srv.URL, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []byte("glTF-binary-payload"), result.Bytes)
	assert.Equal(t, "model/gltf-binary", result.ContentType)
}

func TestFetchBinaryContentTypeFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 不写 Content-Type，让 Go 自动探测不到模型类型
		w.Write([]byte{0x67, 0x6c, 0x54, 0x46, 0x02, 0x00})
	}))
	defer srv.Close()

	result, err := FetchBinary(context.Background(), srv.URL, &Config{ContentType: "model/gltf-binary"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ContentType)
}

func TestFetchBinaryNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("AccessDenied"))
	}))
	defer srv.Close()

	_, err := FetchBinary(context.Background(), srv.URL, DefaultConfig())
	assert.ErrorContains(t, err, "403")
}

func TestFetchBinarySizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	_, err := FetchBinary(context.Background(), srv.URL, &Config{MaxSize: 1024})
	assert.Error(t, err)
}

func TestFetchBinaryEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := FetchBinary(context.Background(), srv.URL, DefaultConfig())
	assert.Error(t, err)
}
