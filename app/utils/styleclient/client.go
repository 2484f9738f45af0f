package styleclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"amico-server/app/config"
	"amico-server/app/logger"

	"resty.dev/v3"
)

// StyledImage 风格化结果
type StyledImage struct {
	DataURL  string // data:<mime>;base64,<payload>
	MimeType string
	Base64   string
}

// CharacterDesc 纯文字建角的输入
type CharacterDesc struct {
	Gender  string // male / female
	Name    string
	Profile string
}

// Client 2D 风格化客户端（Gemini 原生 generateContent 协议）
//
// 从编排层看这是一个同步协作方：没有任务/轮询，一次请求直接拿到
// 风格化图片，只是可能要等几十秒。
type Client struct {
	config *config.StyleConfig
	client *resty.Client
	logger *logger.Logger
}

// New 创建风格化客户端
func New(cfg *config.StyleConfig, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	// 该服务要求 query key 和 Bearer 双重鉴权
	client.SetAuthToken(cfg.APIKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	}

	return &Client{
		config: cfg,
		client: client,
		logger: log,
	}
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.client.Close()
}

// Gemini 原生请求结构
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
	// 请求体用蛇形 inline_data，响应里实际是驼峰 inlineData，两种都认
	InlineDataSnake *inlineData `json:"inline_data,omitempty"`
	InlineDataCamel *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeTypeSnake string `json:"mime_type,omitempty"`
	MimeTypeCamel string `json:"mimeType,omitempty"`
	Data          string `json:"data,omitempty"`
}

func (d *inlineData) mimeType() string {
	if d.MimeTypeCamel != "" {
		return d.MimeTypeCamel
	}
	if d.MimeTypeSnake != "" {
		return d.MimeTypeSnake
	}
	return "image/png"
}

type generationConfig struct {
	ResponseModalities []string    `json:"responseModalities"`
	ImageConfig        imageConfig `json:"imageConfig"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
	ImageSize   string `json:"imageSize"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// StylizeImage 把原始照片转成黏土手办风格的 2D 图
func (c *Client) StylizeImage(ctx context.Context, imageData []byte, mimeType string) (*StyledImage, error) {
	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: ClayStylePrompt()},
				{InlineDataSnake: &inlineData{
					MimeTypeSnake: mimeType,
					Data:          base64.StdEncoding.EncodeToString(imageData),
				}},
			},
		}},
		GenerationConfig: defaultGenerationConfig(),
	}
	return c.generate(ctx, req)
}

// StylizeFromText 根据文字描述直接生成黏土风格角色图（随机生成流程）
func (c *Client) StylizeFromText(ctx context.Context, desc CharacterDesc) (*StyledImage, error) {
	req := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: TextCharacterPrompt(desc.Gender, desc.Name, desc.Profile)}},
		}},
		GenerationConfig: defaultGenerationConfig(),
	}
	return c.generate(ctx, req)
}

func defaultGenerationConfig() generationConfig {
	return generationConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig: imageConfig{
			AspectRatio: "1:1",
			ImageSize:   "1K",
		},
	}
}

// generate 发送 generateContent 请求并解析出第一张图片
func (c *Client) generate(ctx context.Context, reqBody generateRequest) (*StyledImage, error) {
	path := fmt.Sprintf("/v1beta/models/%s:generateContent?key=%s",
		c.config.Model, url.QueryEscape(c.config.APIKey))

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("风格化请求失败: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("风格化服务错误 %d: %s", resp.StatusCode(), truncate(resp.String(), 500))
	}

	var result generateResponse
	if err := json.Unmarshal([]byte(resp.String()), &result); err != nil {
		return nil, fmt.Errorf("风格化响应解析失败: %w", err)
	}

	// 逐个 part 找图片，跳过文本和思考 token
	for _, cand := range result.Candidates {
		for _, p := range cand.Content.Parts {
			data := p.InlineDataCamel
			if data == nil {
				data = p.InlineDataSnake
			}
			if data == nil || data.Data == "" {
				continue
			}
			mime := data.mimeType()
			return &StyledImage{
				DataURL:  fmt.Sprintf("data:%s;base64,%s", mime, data.Data),
				MimeType: mime,
				Base64:   data.Data,
			}, nil
		}
	}

	c.logger.Errorf("风格化服务未返回图片: %s", truncate(resp.String(), 300))
	return nil, fmt.Errorf("风格化服务未返回图片")
}

// truncate 截断日志里的长字符串
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
