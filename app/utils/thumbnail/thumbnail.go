// Package thumbnail 生成角色库用的小尺寸缩略图。
package thumbnail

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"strings"
	"unicode"

	"amico-server/app/utils/dataurl"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	// 风格化服务偶尔返回 webp，注册解码器
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

const (
	// DefaultMaxSize 缩略图最长边（像素）
	DefaultMaxSize = 240
	// DefaultQuality JPEG 压缩质量
	DefaultQuality = 82
)

// Compress 把风格化图片压成小体积 JPEG 缩略图（data URL 进出）
//
// 角色库整行存在 sqlite 里，缩略图控制在几十 KB 以内。
func Compress(imageDataURL string, maxSize, quality int) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	data, _, err := dataurl.Decode(imageDataURL)
	if err != nil {
		return "", fmt.Errorf("缩略图源解析失败: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("缩略图源解码失败: %w", err)
	}

	resized := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("缩略图编码失败: %w", err)
	}

	return dataurl.Encode(buf.Bytes(), "image/jpeg"), nil
}

// Placeholder 兜底缩略图：按名字哈希取底色，画首字母卡片
//
// 风格化图片无法解码时使用，保证角色库里永远有缩略图可显示。
func Placeholder(name string, size int) string {
	if size <= 0 {
		size = DefaultMaxSize
	}

	dc := gg.NewContext(size, size)
	dc.SetColor(placeholderColor(name))
	dc.DrawRoundedRectangle(0, 0, float64(size), float64(size), float64(size)/8)
	dc.Fill()

	dc.SetColor(color.White)
	dc.SetFontFace(basicfont.Face7x13)
	dc.DrawStringAnchored(initialOf(name), float64(size)/2, float64(size)/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return ""
	}
	return dataurl.Encode(buf.Bytes(), "image/png")
}

// placeholderColor 按名字哈希挑一个柔和底色
func placeholderColor(name string) color.Color {
	palette := []color.RGBA{
		{R: 0xf2, G: 0xa6, B: 0x5e, A: 0xff},
		{R: 0xe8, G: 0x8c, B: 0x9d, A: 0xff},
		{R: 0x8f, G: 0xb9, B: 0x96, A: 0xff},
		{R: 0x7f, G: 0xa8, B: 0xc9, A: 0xff},
		{R: 0xb3, G: 0x95, B: 0xc4, A: 0xff},
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return palette[h.Sum32()%uint32(len(palette))]
}

// initialOf 取名字的首个非空白字符，空名用笑脸占位
func initialOf(name string) string {
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return strings.ToUpper(string(r))
		}
	}
	return ":)"
}
