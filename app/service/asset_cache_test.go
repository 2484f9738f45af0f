package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssetCache(t *testing.T, maxSize int64) *AssetCache {
	return NewAssetCache(testDB(t), testLogger(), maxSize, time.Minute)
}

func TestAssetCachePutGet(t *testing.T) {
	cache := newTestAssetCache(t, 1024*1024)

	require.NoError(t, cache.Put("c1", "idle", []byte("glb-bytes"), "model/gltf-binary"))

	asset, err := cache.Get("c1", "idle")
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, []byte("glb-bytes"), asset.Bytes)
	assert.Equal(t, "model/gltf-binary", asset.ContentType)
	assert.Equal(t, int64(9), asset.Size)
}

func TestAssetCachePutOverwritesVariant(t *testing.T) {
	cache := newTestAssetCache(t, 1024*1024)

	require.NoError(t, cache.Put("c1", "idle", []byte("v1"), "model/gltf-binary"))
	require.NoError(t, cache.Put("c1", "idle", []byte("v2-longer"), "model/gltf-binary"))

	asset, err := cache.Get("c1", "idle")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-longer"), asset.Bytes)
}

func TestAssetCacheGetMiss(t *testing.T) {
	cache := newTestAssetCache(t, 1024*1024)

	asset, err := cache.Get("c1", "idle")
	require.NoError(t, err)
	assert.Nil(t, asset)
	assert.False(t, cache.Has("c1", "idle"))
}

func TestAssetCacheSizeLimit(t *testing.T) {
	cache := newTestAssetCache(t, 8)

	err := cache.Put("c1", "idle", []byte("way-too-big-payload"), "model/gltf-binary")

	var writeErr *CacheWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "c1", writeErr.EntityID)
}

func TestAssetCacheHandle(t *testing.T) {
	cache := newTestAssetCache(t, 1024*1024)

	_, ok := cache.Handle("c1", "idle")
	assert.False(t, ok)

	require.NoError(t, cache.Put("c1", "idle", []byte("glb"), "model/gltf-binary"))

	handle, ok := cache.Handle("c1", "idle")
	require.True(t, ok)
	assert.Equal(t, "/api/assets/c1/idle", handle)
}

func TestAssetCacheRemoveForEntity(t *testing.T) {
	cache := newTestAssetCache(t, 1024*1024)

	require.NoError(t, cache.Put("c1", "idle", []byte("a"), ""))
	require.NoError(t, cache.Put("c1", "biped:agree", []byte("b"), ""))
	require.NoError(t, cache.Put("c2", "idle", []byte("c"), ""))

	n, err := cache.RemoveForEntity("c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.False(t, cache.Has("c1", "idle"))
	assert.False(t, cache.Has("c1", "biped:agree"))
	assert.True(t, cache.Has("c2", "idle"))
}

func TestAssetCacheEntityIDs(t *testing.T) {
	cache := newTestAssetCache(t, 1024*1024)

	require.NoError(t, cache.Put("c1", "idle", []byte("a"), ""))
	require.NoError(t, cache.Put("c1", "biped:agree", []byte("b"), ""))
	require.NoError(t, cache.Put("c2", "idle", []byte("c"), ""))

	ids, err := cache.EntityIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)
}

func TestCacheFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "model/gltf-binary")
		w.Write([]byte("remote-glb"))
	}))
	defer srv.Close()

	cache := newTestAssetCache(t, 1024*1024)

	ok := cache.CacheFromURL(context.Background(), "c1", "idle", srv.URL+"/model.glb")
	require.True(t, ok)

	asset, err := cache.Get("c1", "idle")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote-glb"), asset.Bytes)
}

func TestCacheFromURLFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cache := newTestAssetCache(t, 1024*1024)

	assert.False(t, cache.CacheFromURL(context.Background(), "c1", "idle", srv.URL))
	assert.False(t, cache.Has("c1", "idle"))
}
