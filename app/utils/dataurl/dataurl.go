// Package dataurl 处理 data:<mime>;base64,<payload> 形式的内嵌资产。
package dataurl

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// IsDataURL 判断字符串是否为 data URL
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// Encode 把字节编码成 data URL
func Encode(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// Decode 解出 data URL 中的字节和 MIME 类型
func Decode(s string) ([]byte, string, error) {
	if !IsDataURL(s) {
		return nil, "", fmt.Errorf("不是 data URL")
	}
	rest := strings.TrimPrefix(s, "data:")
	idx := strings.Index(rest, ",")
	if idx < 0 {
		return nil, "", fmt.Errorf("data URL 缺少逗号分隔符")
	}

	meta := rest[:idx]
	payload := rest[idx+1:]
	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType == meta {
		// 非 base64 形式不支持
		return nil, "", fmt.Errorf("仅支持 base64 编码的 data URL")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("base64 解码失败: %w", err)
	}
	return data, mimeType, nil
}
