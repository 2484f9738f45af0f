package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"amico-server/app/logger"
	"amico-server/app/service"
	"amico-server/app/utils/dataurl"
	"amico-server/app/utils/styleclient"
	"amico-server/app/utils/tripoclient"

	"github.com/gin-gonic/gin"
)

// PipelineHandler 创建流水线处理器
type PipelineHandler struct {
	pipeline *service.PipelineService
	logger   *logger.Logger
}

// NewPipelineHandler 创建流水线处理器
func NewPipelineHandler(pipeline *service.PipelineService, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline, logger: log}
}

func (h *PipelineHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

func (h *PipelineHandler) error(c *gin.Context, statusCode int, errorCode int, message string, data any) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    data,
	})
}

// stageError 把流水线错误翻译成 HTTP 响应
//
// 上游厂商返回的错误细节放进 data，前端可以原样展示。
func (h *PipelineHandler) stageError(c *gin.Context, err error) {
	var busyErr *service.StageBusyError
	var orderErr *service.StageOrderError
	var presetErr *service.PresetBusyError
	var notFoundErr *service.CharacterNotFoundError
	var failedErr *tripoclient.TaskFailedError
	var timeoutErr *tripoclient.TaskTimeoutError
	var uploadErr *tripoclient.UploadError
	var createErr *tripoclient.TaskCreationError
	var noURLErr *tripoclient.NoModelURLError

	switch {
	case errors.As(err, &busyErr), errors.As(err, &orderErr), errors.As(err, &presetErr):
		h.error(c, http.StatusConflict, 409, err.Error(), nil)
	case errors.As(err, &notFoundErr):
		h.error(c, http.StatusNotFound, 404, err.Error(), nil)
	case errors.As(err, &failedErr):
		h.error(c, http.StatusBadGateway, 502, err.Error(), gin.H{
			"task_id": failedErr.TaskID,
			"status":  string(failedErr.Status),
		})
	case errors.As(err, &timeoutErr):
		h.error(c, http.StatusGatewayTimeout, 504, err.Error(), gin.H{
			"task_id": timeoutErr.TaskID,
		})
	case errors.As(err, &uploadErr):
		h.error(c, http.StatusBadGateway, 502, err.Error(), gin.H{"detail": uploadErr.Detail})
	case errors.As(err, &createErr):
		h.error(c, http.StatusBadGateway, 502, err.Error(), gin.H{"detail": createErr.Detail})
	case errors.As(err, &noURLErr):
		h.error(c, http.StatusBadGateway, 502, err.Error(), nil)
	default:
		h.logger.Errorf("流水线阶段失败: %v", err)
		h.error(c, http.StatusInternalServerError, 500, err.Error(), nil)
	}
}

// maxUploadSize 上传原始照片的字节上限
const maxUploadSize = 10 * 1024 * 1024

// StylizeImage 照片风格化
//
// 接受两种形态：multipart 的 image 文件，或 JSON 里的 image data URL。
func (h *PipelineHandler) StylizeImage(c *gin.Context) {
	imageDataURL, err := h.readImage(c)
	if err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error(), nil)
		return
	}

	styled, err := h.pipeline.StylizeImage(c.Request.Context(), imageDataURL)
	if err != nil {
		h.stageError(c, err)
		return
	}

	h.success(c, gin.H{"styled_image": styled}, "风格化完成")
}

// readImage 从请求里取出原始照片，统一成 data URL
func (h *PipelineHandler) readImage(c *gin.Context) (string, error) {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := c.Request.FormFile("image")
		if err != nil {
			return "", fmt.Errorf("缺少 image 文件")
		}
		defer file.Close()

		if header.Size > maxUploadSize {
			return "", fmt.Errorf("图片超过 %dMB 上限", maxUploadSize/1024/1024)
		}
		mimeType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(mimeType, "image/") {
			return "", fmt.Errorf("只接受 image/* 类型的文件")
		}

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
		if err != nil {
			return "", fmt.Errorf("读取图片失败")
		}
		if len(data) > maxUploadSize {
			return "", fmt.Errorf("图片超过 %dMB 上限", maxUploadSize/1024/1024)
		}
		return dataurl.Encode(data, mimeType), nil
	}

	var req struct {
		Image string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", fmt.Errorf("缺少 image 字段")
	}
	if !dataurl.IsDataURL(req.Image) {
		return "", fmt.Errorf("image 必须是 data URL")
	}
	return req.Image, nil
}

// StylizeFromText 文字建角
func (h *PipelineHandler) StylizeFromText(c *gin.Context) {
	var req struct {
		Gender  string `json:"gender" binding:"required"`
		Name    string `json:"name" binding:"required"`
		Profile string `json:"profile"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, "缺少 gender 或 name 字段", nil)
		return
	}
	if req.Gender != "male" && req.Gender != "female" {
		h.error(c, http.StatusBadRequest, 400, "gender 只能是 male 或 female", nil)
		return
	}

	styled, err := h.pipeline.StylizeFromText(c.Request.Context(), styleclient.CharacterDesc{
		Gender:  req.Gender,
		Name:    req.Name,
		Profile: req.Profile,
	})
	if err != nil {
		h.stageError(c, err)
		return
	}

	h.success(c, gin.H{"styled_image": styled}, "风格化完成")
}

// GenerateModel 风格图转 3D 模型
func (h *PipelineHandler) GenerateModel(c *gin.Context) {
	modelURL, err := h.pipeline.GenerateModel(c.Request.Context())
	if err != nil {
		h.stageError(c, err)
		return
	}
	h.success(c, gin.H{"model_url": modelURL}, "建模完成")
}

// GenerateRig 模型绑骨
func (h *PipelineHandler) GenerateRig(c *gin.Context) {
	riggedURL, err := h.pipeline.GenerateRig(c.Request.Context())
	if err != nil {
		h.stageError(c, err)
		return
	}
	h.success(c, gin.H{"rigged_model_url": riggedURL}, "绑骨完成")
}

// GenerateAnimation 生成 idle 动画并收尾入库
func (h *PipelineHandler) GenerateAnimation(c *gin.Context) {
	animURL, err := h.pipeline.GenerateAnimation(c.Request.Context())
	if err != nil {
		h.stageError(c, err)
		return
	}
	h.success(c, gin.H{"animation_url": animURL}, "动画生成完成")
}

// RequestPresetAnimation 按需生成额外预设动画
func (h *PipelineHandler) RequestPresetAnimation(c *gin.Context) {
	preset := c.Param("preset")
	if preset == "" {
		h.error(c, http.StatusBadRequest, 400, "缺少预设名", nil)
		return
	}

	animURL, err := h.pipeline.RequestPresetAnimation(c.Request.Context(), preset)
	if err != nil {
		h.stageError(c, err)
		return
	}
	h.success(c, gin.H{"preset": preset, "animation_url": animURL}, "动画生成完成")
}

// GetSession 查询当前会话与阶段
func (h *PipelineHandler) GetSession(c *gin.Context) {
	view, err := h.pipeline.Snapshot()
	if err != nil {
		h.error(c, http.StatusInternalServerError, 500, "读取会话失败", nil)
		return
	}
	h.success(c, view, "获取会话成功")
}

// ClearSession 放弃当前会话
func (h *PipelineHandler) ClearSession(c *gin.Context) {
	if err := h.pipeline.Reset(); err != nil {
		h.stageError(c, err)
		return
	}
	h.success(c, nil, "会话已清空")
}
