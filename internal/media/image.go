package media

import (
	"fmt"
	"image"
	"math"

	_ "image/jpeg"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"isl-announcer/internal/logging"
)

const (
	// MaxImageDimension caps the longer side of a decoded library image.
	MaxImageDimension = 4096
	// MaxImagePixels caps width*height of a decoded library image (~80MB RGBA).
	MaxImagePixels = 20_000_000
)

// constrain returns the size an image of w x h is scaled to so that neither
// side exceeds maxDimension and the area stays under maxPixels. The aspect
// ratio is kept. ok is false when no scaling is needed.
func constrain(w, h, maxDimension, maxPixels int) (tw, th int, ok bool) {
	if w <= 0 || h <= 0 {
		return w, h, false
	}
	scale := 1.0
	if longest := max(w, h); longest > maxDimension {
		scale = float64(maxDimension) / float64(longest)
	}
	if area := float64(w) * float64(h) * scale * scale; area > float64(maxPixels) {
		scale *= math.Sqrt(float64(maxPixels) / area)
	}
	if scale >= 1 {
		return w, h, false
	}
	return max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale)), true
}

// LoadImageConstrained decodes the image at path, downscaling it when it
// exceeds the given limits.
func LoadImageConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	b := img.Bounds()
	tw, th, ok := constrain(b.Dx(), b.Dy(), maxDimension, maxPixels)
	if !ok {
		return img, nil
	}
	logging.Debug("Constraining large image %s from %dx%d to %dx%d", path, b.Dx(), b.Dy(), tw, th)
	return imaging.Resize(img, tw, th, imaging.Lanczos), nil
}
