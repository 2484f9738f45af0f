// Package signedurl 在不发起网络请求的前提下判断签名下载链接是否过期。
//
// 资产托管方签发的是 CloudFront 风格的签名 URL：过期时间以
// base64url 变体编码进 Policy 查询参数里的 JSON 策略。解码是纯函数，
// 任何解析失败都按"未过期"处理（fail open），由真正的下载去兜底。
package signedurl

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// policy CloudFront 策略结构，只取过期条件
type policy struct {
	Statement []struct {
		Condition struct {
			DateLessThan struct {
				EpochTime int64 `json:"AWS:EpochTime"`
			} `json:"DateLessThan"`
		} `json:"Condition"`
	} `json:"Statement"`
}

// PolicyExpiry 从一段策略字节里解出过期时间（epoch 秒）
//
// 入参是 Policy 参数解码后的 JSON；解析不出有效过期时间返回 false。
func PolicyExpiry(data []byte) (int64, bool) {
	var p policy
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, false
	}
	for _, st := range p.Statement {
		if t := st.Condition.DateLessThan.EpochTime; t > 0 {
			return t, true
		}
	}
	return 0, false
}

// decodePolicyParam 解码 CloudFront 的 base64 变体
//
// CloudFront 把 '+' '=' '/' 分别替换成 '-' '_' '~'；
// 也兼容标准 base64url（真正的 RawURLEncoding）。
func decodePolicyParam(s string) ([]byte, bool) {
	replaced := strings.NewReplacer("-", "+", "_", "=", "~", "/").Replace(s)
	if data, err := base64.StdEncoding.DecodeString(replaced); err == nil {
		return data, true
	}
	if data, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return data, true
	}
	return nil, false
}

// Expiry 提取签名 URL 自带的过期时间（epoch 秒）
//
// 识别两种形态：Policy 参数（base64 编码的 JSON 策略）和
// 纯数字的 Expires 参数。识别不了返回 false。
func Expiry(rawURL string) (int64, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	q := u.Query()

	if p := q.Get("Policy"); p != "" {
		if data, ok := decodePolicyParam(p); ok {
			if exp, ok := PolicyExpiry(data); ok {
				return exp, true
			}
		}
	}

	if e := q.Get("Expires"); e != "" {
		if exp, err := strconv.ParseInt(e, 10, 64); err == nil && exp > 0 {
			return exp, true
		}
	}

	return 0, false
}

// IsExpired 判断签名 URL 是否已过期（或将在 leeway 内过期）
//
// 提取不到过期时间一律返回 false，陌生格式不能让调用方崩溃。
func IsExpired(rawURL string, leeway time.Duration) bool {
	exp, ok := Expiry(rawURL)
	if !ok {
		return false
	}
	return exp <= time.Now().Add(leeway).Unix()
}
