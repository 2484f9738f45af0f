package signedurl

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePolicy 按 CloudFront 的替换规则编码策略 JSON
func encodePolicy(policyJSON string) string {
	b64 := base64.StdEncoding.EncodeToString([]byte(policyJSON))
	return strings.NewReplacer("+", "-", "=", "_", "/", "~").Replace(b64)
}

func policyURL(epoch int64) string {
	policyJSON := fmt.Sprintf(
		`{"Statement":[{"Resource":"https://assets.example.com/*","Condition":{"DateLessThan":{"AWS:EpochTime":%d}}}]}`,
		epoch)
	return "https://assets.example.com/model.glb?Policy=" + encodePolicy(policyJSON) +
		"&Signature=abc&Key-Pair-Id=K123"
}

func TestPolicyExpiry(t *testing.T) {
	exp, ok := PolicyExpiry([]byte(`{"Statement":[{"Condition":{"DateLessThan":{"AWS:EpochTime":1700000000}}}]}`))
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), exp)

	_, ok = PolicyExpiry([]byte(`{"Statement":[]}`))
	assert.False(t, ok)

	_, ok = PolicyExpiry([]byte(`not json`))
	assert.False(t, ok)
}

func TestExpiryFromPolicyParam(t *testing.T) {
	exp, ok := Expiry(policyURL(1700000000))
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), exp)
}

func TestExpiryFromRawURLEncoding(t *testing.T) {
	// 标准 base64url 编码也要能认
	policyJSON := `{"Statement":[{"Condition":{"DateLessThan":{"AWS:EpochTime":1800000000}}}]}`
	b64 := base64.RawURLEncoding.EncodeToString([]byte(policyJSON))

	exp, ok := Expiry("https://assets.example.com/model.glb?Policy=" + b64)
	require.True(t, ok)
	assert.Equal(t, int64(1800000000), exp)
}

func TestExpiryFromExpiresParam(t *testing.T) {
	exp, ok := Expiry("https://assets.example.com/model.glb?Expires=1650000000&Signature=abc")
	require.True(t, ok)
	assert.Equal(t, int64(1650000000), exp)
}

func TestExpiryUnrecognized(t *testing.T) {
	cases := []string{
		"https://assets.example.com/model.glb",
		"https://assets.example.com/model.glb?Policy=%%%garbage",
		"https://assets.example.com/model.glb?Expires=abc",
		"://not a url",
	}
	for _, c := range cases {
		_, ok := Expiry(c)
		assert.False(t, ok, c)
	}
}

func TestIsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour).Unix()
	future := time.Now().Add(time.Hour).Unix()

	assert.True(t, IsExpired(policyURL(past), 0))
	assert.False(t, IsExpired(policyURL(future), 0))

	// 在提前量窗口内视为过期
	soon := time.Now().Add(30 * time.Second).Unix()
	assert.True(t, IsExpired(policyURL(soon), time.Minute))
}

func TestIsExpiredFailOpen(t *testing.T) {
	// 识别不了的地址一律当作没过期
	assert.False(t, IsExpired("https://cdn.example.com/model.glb?sig=opaque", time.Minute))
	assert.False(t, IsExpired("https://assets.example.com/model.glb?Policy=!!!!", time.Minute))
}
