package imageproc

import (
	"fmt"
	"image"
	"math"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const dpi = 72

// outlineDirs are the 8 cardinal and diagonal unit offsets used for strokes
var outlineDirs = [8]image.Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// textLayer draws shadow, then outline, then fill, and trims the result to its ink
func (r *Renderer) textLayer(t *model.TextContent) (*image.NRGBA, error) {
	f := r.fonts.Get(t.FontRef)

	face := truetype.NewFace(f, &truetype.Options{Size: t.SizePx, DPI: dpi, Hinting: font.HintingNone})
	defer face.Close()

	metrics := face.Metrics()
	ascent, descent := metrics.Ascent.Ceil(), metrics.Descent.Ceil()
	advance := font.MeasureString(face, t.Value).Ceil()

	stroke := 0
	if t.Outline != nil {
		stroke = t.Outline.WidthPx
	}
	var sx, sy int
	if t.Shadow != nil {
		sx, sy = t.Shadow.OffsetX, t.Shadow.OffsetY
	}

	// glyphs may overhang their advance box, the slack is trimmed away afterwards
	slack := int(math.Ceil(t.SizePx/2)) + 1
	padL := slack + stroke + max(0, -sx)
	padT := slack + stroke + max(0, -sy)
	w := padL + advance + stroke + max(0, sx) + slack
	h := padT + ascent + descent + stroke + max(0, sy) + slack

	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(f)
	ctx.SetFontSize(t.SizePx)
	ctx.SetClip(dst.Bounds())
	ctx.SetDst(dst)
	ctx.SetHinting(font.HintingNone)

	originX, originY := padL, padT+ascent
	drawAt := func(c model.Color, dx, dy int) error {
		ctx.SetSrc(image.NewUniform(c.NRGBA()))
		if _, err := ctx.DrawString(t.Value, freetype.Pt(originX+dx, originY+dy)); err != nil {
			return fmt.Errorf("%w: failed to draw text: %v", model.ErrRender, err)
		}
		return nil
	}

	if t.Shadow != nil {
		if err := drawAt(t.Shadow.Color, sx, sy); err != nil {
			return nil, err
		}
	}

	if t.Outline != nil && stroke > 0 {
		for _, d := range outlineDirs {
			if err := drawAt(t.Outline.Color, d.X*stroke, d.Y*stroke); err != nil {
				return nil, err
			}
		}
	}

	if err := drawAt(t.Fill, 0, 0); err != nil {
		return nil, err
	}

	return trimTransparent(imaging.Clone(dst)), nil
}

