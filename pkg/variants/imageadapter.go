package variants

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// imageAdapter is the thin wrapper around the imaging library exposing only
// the two operations the pipeline needs: orientation-normalized decode and
// width-bound resize with re-encode.
type imageAdapter struct {
	jpegQuality int
}

func newImageAdapter() *imageAdapter {
	return &imageAdapter{jpegQuality: 85}
}

// decode reads the image and applies the EXIF orientation so all variants
// are upright regardless of how the camera was held.
func (a *imageAdapter) decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// resizeToWidth scales the image down to the given width keeping the aspect
// ratio and re-encodes it as JPEG. Images already narrower than the target
// width are re-encoded unscaled.
func (a *imageAdapter) resizeToWidth(img image.Image, width int) ([]byte, error) {
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(a.jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode variant: %w", err)
	}
	return buf.Bytes(), nil
}
