package tripoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"amico-server/app/config"
	"amico-server/app/logger"

	"resty.dev/v3"
)

// Client Tripo3D 任务队列客户端
//
// 只做一次性的请求，不含任何重试逻辑——重试策略全部在轮询器和
// 流水线编排层，避免失败归因混乱。
type Client struct {
	client *resty.Client
	logger *logger.Logger
}

// New 创建任务队列客户端
func New(cfg *config.TripoConfig, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetAuthToken(cfg.APIKey)
	if cfg.RequestTimeout > 0 {
		client.SetTimeout(time.Duration(cfg.RequestTimeout) * time.Second)
	}

	return &Client{
		client: client,
		logger: log,
	}
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.client.Close()
}

// Upload 上传图片字节，返回可作为任务输入的 file_token
func (c *Client) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	// jpeg 的扩展名惯例写作 jpg
	ext := strings.TrimPrefix(mimeType, "image/")
	if ext == "jpeg" {
		ext = "jpg"
	}
	if ext == "" || ext == mimeType {
		ext = "png"
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("file", "image."+ext, bytes.NewReader(data)).
		Post("/upload")
	if err != nil {
		return "", &UploadError{Code: -1, Detail: err.Error()}
	}

	var env envelope
	if err := json.Unmarshal([]byte(resp.String()), &env); err != nil {
		return "", &UploadError{Code: -1, Detail: fmt.Sprintf("响应解析失败: %v", err)}
	}
	if env.Code != 0 {
		return "", &UploadError{Code: env.Code, Detail: env.Message}
	}

	var payload struct {
		ImageToken string `json:"image_token"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil || payload.ImageToken == "" {
		return "", &UploadError{Code: env.Code, Detail: "响应缺少 image_token 字段"}
	}

	c.logger.Debugf("图片上传成功, token=%s...", truncate(payload.ImageToken, 16))
	return payload.ImageToken, nil
}

// CreateTask 提交一个任务，返回任务 ID
//
// 上游不保证创建操作幂等，调用方网络重试可能产生重复计费任务，
// 所以这里失败后从不自动重发。
func (c *Client) CreateTask(ctx context.Context, params TaskParams) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(params).
		Post("/task")
	if err != nil {
		return "", &TaskCreationError{Code: -1, Detail: err.Error()}
	}

	var env envelope
	if err := json.Unmarshal([]byte(resp.String()), &env); err != nil {
		return "", &TaskCreationError{Code: -1, Detail: fmt.Sprintf("响应解析失败: %v", err)}
	}
	if env.Code != 0 {
		return "", &TaskCreationError{Code: env.Code, Detail: env.Message}
	}

	var payload struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil || payload.TaskID == "" {
		return "", &TaskCreationError{Code: env.Code, Detail: "响应缺少 task_id 字段"}
	}

	c.logger.Infof("创建任务成功: type=%s taskId=%s", params.Type, payload.TaskID)
	return payload.TaskID, nil
}

// GetStatus 查询一次任务状态
func (c *Client) GetStatus(ctx context.Context, taskID string) (*Task, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get("/task/" + taskID)
	if err != nil {
		return nil, &StatusQueryError{TaskID: taskID, Err: err}
	}

	var env envelope
	if err := json.Unmarshal([]byte(resp.String()), &env); err != nil {
		return nil, &StatusQueryError{TaskID: taskID, Err: err}
	}
	if env.Code != 0 {
		return nil, &StatusQueryError{TaskID: taskID, Err: fmt.Errorf("code %d: %s", env.Code, env.Message)}
	}

	var task Task
	if err := json.Unmarshal(env.Data, &task); err != nil {
		return nil, &StatusQueryError{TaskID: taskID, Err: err}
	}
	if task.Status == "" {
		task.Status = StatusUnknown
	}
	return &task, nil
}

// truncate 截断日志里的长字符串
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
