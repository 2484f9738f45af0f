package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"amico-server/app/config"
	"amico-server/app/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 入参校验在进编排器之前就返回，这里只测 400 路径
func newStyleValidationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New(config.LogConfig{Level: "error", Output: "stdout"})
	h := NewPipelineHandler(nil, log)

	router := gin.New()
	router.POST("/api/pipeline/style", h.StylizeImage)
	return router
}

func TestStylizeRejectsMissingImage(t *testing.T) {
	router := newStyleValidationRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/style", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStylizeRejectsNonDataURL(t *testing.T) {
	router := newStyleValidationRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/style",
		strings.NewReader(`{"image":"https://example.com/a.png"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStylizeRejectsNonImageUpload(t *testing.T) {
	router := newStyleValidationRouter()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="a.txt"`)
	header.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	part.Write([]byte("not an image"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/style", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
