package handler

import (
	"net/http"
	"strings"

	"amico-server/app/logger"
	"amico-server/app/service"
	"amico-server/app/utils/fetcher"

	"github.com/gin-gonic/gin"
)

// AssetHandler 本地资产与 GLB 代理处理器
//
// 这两组接口由桌面端的 3D 渲染器直接加载，不走登录态。
type AssetHandler struct {
	cache  *service.AssetCache
	logger *logger.Logger
}

// NewAssetHandler 创建资产处理器
func NewAssetHandler(cache *service.AssetCache, log *logger.Logger) *AssetHandler {
	return &AssetHandler{cache: cache, logger: log}
}

func (h *AssetHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// ServeAsset 返回缓存的模型资产字节
func (h *AssetHandler) ServeAsset(c *gin.Context) {
	entityID := c.Param("entity")
	variant := c.Param("variant")

	asset, err := h.cache.Get(entityID, variant)
	if err != nil {
		h.logger.Errorf("读取缓存资产 %s/%s 失败: %v", entityID, variant, err)
		h.error(c, http.StatusInternalServerError, 500, "读取缓存资产失败")
		return
	}
	if asset == nil {
		h.error(c, http.StatusNotFound, 404, "资产不存在")
		return
	}

	contentType := asset.ContentType
	if contentType == "" {
		contentType = "model/gltf-binary"
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, asset.Bytes)
}

// ProxyGLB 代理下载远端 GLB
//
// 渲染端加载跨域的签名地址会被浏览器拦，统一从这里中转。
func (h *AssetHandler) ProxyGLB(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		h.error(c, http.StatusBadRequest, 400, "缺少 url 参数")
		return
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		h.error(c, http.StatusBadRequest, 400, "url 必须是 http(s) 地址")
		return
	}

	result, err := fetcher.FetchBinary(c.Request.Context(), rawURL, fetcher.DefaultConfig())
	if err != nil {
		h.logger.Warnf("代理下载失败: %s, 错误: %v", rawURL, err)
		h.error(c, http.StatusBadGateway, 502, "远端资产下载失败")
		return
	}

	contentType := result.ContentType
	if contentType == "" {
		contentType = "model/gltf-binary"
	}
	c.Data(http.StatusOK, contentType, result.Bytes)
}
