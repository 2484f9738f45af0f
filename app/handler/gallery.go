package handler

import (
	"errors"
	"net/http"

	"amico-server/app/logger"
	"amico-server/app/service"

	"github.com/gin-gonic/gin"
)

// GalleryHandler 角色图鉴处理器
type GalleryHandler struct {
	gallery  *service.GalleryStore
	pipeline *service.PipelineService
	logger   *logger.Logger
}

// NewGalleryHandler 创建图鉴处理器
func NewGalleryHandler(gallery *service.GalleryStore, pipeline *service.PipelineService, log *logger.Logger) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, pipeline: pipeline, logger: log}
}

func (h *GalleryHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

func (h *GalleryHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// ListCharacters 按入库倒序返回全部角色
func (h *GalleryHandler) ListCharacters(c *gin.Context) {
	chars, err := h.gallery.List()
	if err != nil {
		h.logger.Errorf("读取图鉴失败: %v", err)
		h.error(c, http.StatusInternalServerError, 500, "读取图鉴失败")
		return
	}
	h.success(c, chars, "获取角色列表成功")
}

// DeleteCharacter 删除角色（连同缓存资产）
func (h *GalleryHandler) DeleteCharacter(c *gin.Context) {
	id := c.Param("id")

	err := h.pipeline.DeleteCharacter(id)
	if err != nil {
		var notFound *service.CharacterNotFoundError
		if errors.As(err, &notFound) {
			h.error(c, http.StatusNotFound, 404, err.Error())
			return
		}
		h.logger.Errorf("删除角色 %s 失败: %v", id, err)
		h.error(c, http.StatusInternalServerError, 500, "删除角色失败")
		return
	}
	h.success(c, nil, "角色已删除")
}

// ResolveModel 解析角色的可加载模型地址
func (h *GalleryHandler) ResolveModel(c *gin.Context) {
	id := c.Param("id")

	resolution, err := h.pipeline.ResolveCharacterModel(c.Request.Context(), id)
	if err != nil {
		var notFound *service.CharacterNotFoundError
		if errors.As(err, &notFound) {
			h.error(c, http.StatusNotFound, 404, err.Error())
			return
		}
		h.logger.Errorf("解析角色 %s 模型失败: %v", id, err)
		h.error(c, http.StatusInternalServerError, 500, err.Error())
		return
	}
	h.success(c, resolution, "解析模型地址成功")
}
