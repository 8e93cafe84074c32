package imageproc

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/disintegration/imaging"
)

// Encode writes img in the given format. Formats without alpha get the image flattened onto white,
// quality is clamped to 1..100 and only used by lossy formats.
func Encode(w io.Writer, img image.Image, f model.Format, quality int) error {
	imgFormat, ok := model.GetImagingFormat[f]
	if !ok {
		return fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, f)
	}

	if !f.HasAlpha() {
		img = Flatten(img, color.White)
	}

	var opts []imaging.EncodeOption
	if f.IsLossy() {
		opts = append(opts, imaging.JPEGQuality(min(max(quality, 1), 100)))
	}

	return imaging.Encode(w, img, imgFormat, opts...)
}

// Flatten composites img over an opaque background of color bg
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
