package dataurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0xff}
	encoded := Encode(data, "image/png")

	assert.True(t, IsDataURL(encoded))

	decoded, mimeType, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
	assert.Equal(t, "image/png", mimeType)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	cases := []string{
		"https://example.com/a.png",
		"data:image/png",
		"data:image/png;base64,%%%",
		"data:text/plain,hello",
	}
	for _, c := range cases {
		_, _, err := Decode(c)
		assert.Error(t, err, c)
	}
}
