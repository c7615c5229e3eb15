package simpleblog

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestDeriveThumbnailBoundsDimensions(t *testing.T) {
	data := encodePNG(t, 800, 400)

	thumb, err := deriveThumbnail(data, 100)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.LessOrEqual(t, img.Bounds().Dx(), 100)
	assert.LessOrEqual(t, img.Bounds().Dy(), 100)
}

func TestDeriveThumbnailKeepsSmallImages(t *testing.T) {
	data := encodePNG(t, 32, 32)

	thumb, err := deriveThumbnail(data, 100)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestDeriveThumbnailJPEGStaysJPEG(t *testing.T) {
	data := encodeJPEG(t, 400, 400)

	thumb, err := deriveThumbnail(data, 100)
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestDeriveThumbnailRejectsGarbage(t *testing.T) {
	_, err := deriveThumbnail([]byte("not an image"), 100)
	assert.Error(t, err)
}
