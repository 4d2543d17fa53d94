package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/gift"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension caps generated images before upload; models
	// occasionally return oversized frames.
	MaxDimension = 1024

	maxDecodeDimension = 4000
)

// Normalize decodes a generated image, downscales it to MaxDimension if
// needed, and re-encodes it as PNG. Undecodable payloads pass through
// unchanged with their original MIME type so an exotic model output
// never sinks the pipeline.
func Normalize(data []byte, mime string) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, mime, nil
	}

	bounds := src.Bounds()
	if bounds.Dx() > maxDecodeDimension || bounds.Dy() > maxDecodeDimension {
		return nil, "", fmt.Errorf("image too large (%dx%d, max %dx%d)",
			bounds.Dx(), bounds.Dy(), maxDecodeDimension, maxDecodeDimension)
	}

	if bounds.Dx() > MaxDimension || bounds.Dy() > MaxDimension {
		var g *gift.GIFT
		if bounds.Dx() >= bounds.Dy() {
			g = gift.New(gift.Resize(MaxDimension, 0, gift.LanczosResampling))
		} else {
			g = gift.New(gift.Resize(0, MaxDimension, gift.LanczosResampling))
		}
		dst := image.NewRGBA(g.Bounds(src.Bounds()))
		g.Draw(dst, src)
		src = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), "image/png", nil
}
