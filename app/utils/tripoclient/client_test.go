package tripoclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"amico-server/app/config"
	"amico-server/app/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Output: "stdout"})
}

func newTestClient(baseURL string) *Client {
	return New(&config.TripoConfig{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		RequestTimeout: 5,
	}, testLogger())
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		// jpeg 的文件名惯例是 .jpg
		assert.Equal(t, "image.jpg", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("fake-image"), data)

		w.Write([]byte(`{"code":0,"data":{"image_token":"tok-123"}}`))
	}))
	defer srv.Close()

	token, err := newTestClient(srv.URL).Upload(context.Background(), []byte("fake-image"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestUploadVendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":2002,"message":"invalid image"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Upload(context.Background(), []byte("x"), "image/png")

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, 2002, uploadErr.Code)
	assert.Equal(t, "invalid image", uploadErr.Detail)
}

func TestCreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task", r.URL.Path)

		var params TaskParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, TaskImageToModel, params.Type)
		assert.Equal(t, "tok-123", params.File.FileToken)
		assert.Equal(t, "detailed", params.TextureQuality)
		assert.Equal(t, 42, params.ModelSeed)

		w.Write([]byte(`{"code":0,"data":{"task_id":"task-9"}}`))
	}))
	defer srv.Close()

	taskID, err := newTestClient(srv.URL).CreateTask(context.Background(), TaskParams{
		Type:           TaskImageToModel,
		File:           &FileInput{Type: "jpg", FileToken: "tok-123"},
		TextureQuality: "detailed",
		ModelSeed:      42,
	})
	require.NoError(t, err)
	assert.Equal(t, "task-9", taskID)
}

func TestCreateTaskVendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":2010,"message":"insufficient credits"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateTask(context.Background(), TaskParams{Type: TaskTextToModel})

	var createErr *TaskCreationError
	require.ErrorAs(t, err, &createErr)
	assert.Equal(t, 2010, createErr.Code)
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task/task-9", r.URL.Path)
		w.Write([]byte(`{"code":0,"data":{"task_id":"task-9","status":"running","progress":60}}`))
	}))
	defer srv.Close()

	task, err := newTestClient(srv.URL).GetStatus(context.Background(), "task-9")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, task.Status)
	assert.Equal(t, 60, task.Progress)
}

func TestGetStatusDefaultsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"task_id":"task-9"}}`))
	}))
	defer srv.Close()

	task, err := newTestClient(srv.URL).GetStatus(context.Background(), "task-9")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, task.Status)
}
