package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"amico-server/app/utils/dataurl"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImageDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := imaging.New(w, h, color.White)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return dataurl.Encode(buf.Bytes(), "image/png")
}

func TestCompressResizesToFit(t *testing.T) {
	src := testImageDataURL(t, 1024, 512)

	thumb, err := Compress(src, 240, 82)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(thumb, "data:image/jpeg;base64,"))

	data, _, err := dataurl.Decode(thumb)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// 保持宽高比缩到长边 240
	assert.Equal(t, 240, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
}

func TestCompressRejectsGarbage(t *testing.T) {
	_, err := Compress(dataurl.Encode([]byte("not an image"), "image/png"), 240, 82)
	assert.Error(t, err)

	_, err = Compress("https://example.com/a.png", 240, 82)
	assert.Error(t, err)
}

func TestPlaceholder(t *testing.T) {
	thumb := Placeholder("小糖", 240)
	require.True(t, strings.HasPrefix(thumb, "data:image/png;base64,"))

	data, _, err := dataurl.Decode(thumb)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 240, img.Bounds().Dx())

	// 同名同色，不同名大概率不同色
	assert.Equal(t, thumb, Placeholder("小糖", 240))
}

func TestPlaceholderEmptyName(t *testing.T) {
	thumb := Placeholder("", 0)
	assert.True(t, strings.HasPrefix(thumb, "data:image/png;base64,"))
}
