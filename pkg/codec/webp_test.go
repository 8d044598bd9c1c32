package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
)

func pngFixture(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestWebP_EncodePNG(t *testing.T) {
	out, err := WebP{}.Encode(pngFixture(t), 80)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// WebP container magic: RIFF....WEBP
	require.Equal(t, []byte("RIFF"), out[:4])
	require.Equal(t, []byte("WEBP"), out[8:12])
}

func TestWebP_Deterministic(t *testing.T) {
	src := pngFixture(t)
	first, err := WebP{}.Encode(src, 80)
	require.NoError(t, err)
	second, err := WebP{}.Encode(src, 80)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestWebP_UnsupportedFormat(t *testing.T) {
	_, err := WebP{}.Encode([]byte("this is not an image"), 80)
	require.ErrorIs(t, err, convert.ErrUnsupportedFormat)
}

func TestWebP_QualityOutOfRangeFallsBack(t *testing.T) {
	// Out-of-range quality clamps to the default rather than failing.
	out, err := WebP{}.Encode(pngFixture(t), 0)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}
