package imageproc

import (
	"image"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/disintegration/imaging"
)

// Resize scales an exported image according to spec, a nil spec keeps the image as is
func Resize(img image.Image, spec *model.ResizeSpec) image.Image {
	if spec == nil || img == nil {
		return img
	}

	b := img.Bounds()
	switch spec.Mode {
	case model.ResizePercent:
		if spec.Percent == 100 {
			return img
		}
		w := max(1, b.Dx()*spec.Percent/100)
		h := max(1, b.Dy()*spec.Percent/100)
		return imaging.Resize(img, w, h, imaging.Lanczos)
	case model.ResizeWidth:
		return imaging.Resize(img, spec.Width, 0, imaging.Lanczos)
	case model.ResizeHeight:
		return imaging.Resize(img, 0, spec.Height, imaging.Lanczos)
	case model.ResizeFixed:
		return imaging.Resize(img, spec.Width, spec.Height, imaging.Lanczos)
	}
	return img
}
