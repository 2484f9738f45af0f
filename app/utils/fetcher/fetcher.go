package fetcher

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"
)

// Result 一次二进制拉取的结果
type Result struct {
	Bytes       []byte
	ContentType string
	Duration    time.Duration
}

// Config 拉取配置
type Config struct {
	Timeout     time.Duration // 整体超时
	MaxSize     int64         // 字节上限，0 表示不限制
	ContentType string        // 响应缺少 Content-Type 时的兜底值
}

// DefaultConfig 默认拉取配置（面向 GLB 模型文件）
func DefaultConfig() *Config {
	return &Config{
		Timeout:     5 * time.Minute,
		MaxSize:     100 * 1024 * 1024, // 100MB
		ContentType: "model/gltf-binary",
	}
}

// FetchBinary 从签名 URL 拉取二进制内容到内存
//
// 签名 URL 可能随时过期，上游返回非 200 时原样带回状态码供调用方判断。
func FetchBinary(ctx context.Context, rawURL string, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	client := resty.New()
	defer client.Close()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	start := time.Now()
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "*/*").
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("下载失败: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("下载失败，状态码: %d", resp.StatusCode())
	}

	body := resp.Bytes()
	if len(body) == 0 {
		return nil, fmt.Errorf("下载内容为空: %s", rawURL)
	}
	if cfg.MaxSize > 0 && int64(len(body)) > cfg.MaxSize {
		return nil, fmt.Errorf("下载内容超过大小上限 (%d > %d)", len(body), cfg.MaxSize)
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = cfg.ContentType
	}

	return &Result{
		Bytes:       body,
		ContentType: contentType,
		Duration:    time.Since(start),
	}, nil
}
