package renderer

import (
	"bytes"
	"crypto/sha256"
	"image"
	"image/color"
	"image/png"
)

const (
	thumbnailWidth  = 640
	thumbnailHeight = 360
)

// thumbnail produces a deterministic placeholder image derived from a
// hash of the harness document. The renderer never executes submitted
// code; the pattern stands in for a real capture.
func thumbnail(harnessHTML string) ([]byte, error) {
	hash := sha256.Sum256([]byte(harnessHTML))

	img := image.NewRGBA(image.Rect(0, 0, thumbnailWidth, thumbnailHeight))
	for y := 0; y < thumbnailHeight; y++ {
		for x := 0; x < thumbnailWidth; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: hash[(x+y)%len(hash)],
				G: hash[(x+7)%len(hash)],
				B: hash[(y+13)%len(hash)],
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
