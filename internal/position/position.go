// Package position maps a watermark placement onto canvas pixel coordinates
package position

import (
	"math"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

// DefaultMargin is the gap between a watermark and the canvas edges it is anchored to
const DefaultMargin = 10

// Resolve returns the top-left corner of a watermark of unrotated size wmW x wmH.
// A rotated placement is resolved for the expanded bounding box of the rotated layer.
// Results are not clamped and may lie outside the canvas.
func Resolve(canvasW, canvasH, wmW, wmH int, p model.Placement) (x, y int) {
	if p.RotationDeg != 0 {
		wmW, wmH = RotatedSize(wmW, wmH, p.RotationDeg)
	}
	return ResolveBox(canvasW, canvasH, wmW, wmH, p)
}

// ResolveBox places a box that is already rotated, the rotation in p is ignored
func ResolveBox(canvasW, canvasH, boxW, boxH int, p model.Placement) (x, y int) {
	m := Margin(p)

	switch p.Anchor {
	case model.TopLeft, model.LeftCenter, model.BottomLeft:
		x = m
	case model.TopCenter, model.Center, model.BottomCenter:
		x = floorHalf(canvasW - boxW)
	default:
		x = canvasW - boxW - m
	}

	switch p.Anchor {
	case model.TopLeft, model.TopCenter, model.TopRight:
		y = m
	case model.LeftCenter, model.Center, model.RightCenter:
		y = floorHalf(canvasH - boxH)
	default:
		y = canvasH - boxH - m
	}

	return x + p.OffsetX, y + p.OffsetY
}

// Margin returns the override from p or DefaultMargin
func Margin(p model.Placement) int {
	if p.Margin != nil {
		return *p.Margin
	}
	return DefaultMargin
}

// RotatedSize is the size of the buffer that exactly contains a w x h layer rotated by deg.
// It follows the arithmetic of imaging.Rotate, so it matches the rendered layer.
func RotatedSize(w, h int, deg float64) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}

	deg -= math.Floor(deg/360) * 360
	switch deg {
	case 0, 180:
		return w, h
	case 90, 270:
		return h, w
	}

	sin, cos := math.Sincos(math.Pi * deg / 180)
	x1, y1 := rotatePoint(float64(w-1), 0, sin, cos)
	x2, y2 := rotatePoint(float64(w-1), float64(h-1), sin, cos)
	x3, y3 := rotatePoint(0, float64(h-1), sin, cos)

	minx := math.Min(x1, math.Min(x2, math.Min(x3, 0)))
	maxx := math.Max(x1, math.Max(x2, math.Max(x3, 0)))
	miny := math.Min(y1, math.Min(y2, math.Min(y3, 0)))
	maxy := math.Max(y1, math.Max(y2, math.Max(y3, 0)))

	neww := maxx - minx + 1
	if neww-math.Floor(neww) > 0.1 {
		neww++
	}
	newh := maxy - miny + 1
	if newh-math.Floor(newh) > 0.1 {
		newh++
	}

	return int(neww), int(newh)
}

func rotatePoint(x, y, sin, cos float64) (float64, float64) {
	return x*cos - y*sin, x*sin + y*cos
}

// floorHalf is v/2 rounded toward negative infinity
func floorHalf(v int) int {
	return v >> 1
}
