package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// EncodeSample converts a raw frame into the canonical sample format: the
// frame is mirrored horizontally to match what the user saw in the preview,
// downscaled to at most maxWidth and encoded as JPEG.
func EncodeSample(frame image.Image, maxWidth, quality int) ([]byte, error) {
	mirrored := mirror(frame)

	bounds := mirrored.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var out image.Image = mirrored
	if width > maxWidth {
		newHeight := int(float64(height) * float64(maxWidth) / float64(width))
		resized := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), mirrored, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode sample: %w", err)
	}
	return buf.Bytes(), nil
}

func mirror(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(bounds.Max.X-1-x, y-bounds.Min.Y, src.At(x, y))
		}
	}
	return dst
}
