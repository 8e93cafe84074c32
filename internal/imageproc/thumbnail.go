package imageproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// PreviewFit downscales img so that its longer side is at most maxSide.
// Smaller images and a non-positive maxSide leave img untouched.
func PreviewFit(img image.Image, maxSide int) image.Image {
	if img == nil || maxSide <= 0 {
		return img
	}

	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}
