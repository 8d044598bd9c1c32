// Package codec provides the concrete WebP Encoder used by the pipeline.
// Decoding goes through the stdlib image registry, widened with the
// golang.org/x/image formats; encoding is libwebp via chai2010/webp.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Register source formats with the image package.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	xwebp "golang.org/x/image/webp"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
)

func init() {
	// x/image/webp registers a decoder only via its Decode functions;
	// register it explicitly so already-WebP inputs can be re-encoded
	// when that mode is enabled.
	image.RegisterFormat("webp", "RIFF????WEBP", xwebp.Decode, xwebp.DecodeConfig)
}

// WebP encodes any registered raster format to WebP at a given quality.
// Images pass through unmodified in dimensions and color; only the encoding
// changes. The zero value is ready to use.
type WebP struct {
	// Lossless switches to lossless encoding, ignoring quality.
	Lossless bool
}

// Encode implements convert.Encoder.
func (c WebP) Encode(src []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, convert.ErrUnsupportedFormat
		}
		return nil, &convert.CodecError{Stage: convert.KindDecode, Err: err}
	}

	var buf bytes.Buffer
	opts := &webp.Options{
		Lossless: c.Lossless,
		Quality:  float32(convert.ClampQuality(quality)),
	}
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, &convert.CodecError{Stage: convert.KindEncode, Err: fmt.Errorf("webp encode: %w", err)}
	}
	return buf.Bytes(), nil
}
