package position

import (
	"image/color"
	"testing"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestResolve_Anchors(t *testing.T) {
	const cw, ch, w, h = 1000, 800, 100, 50

	tests := []struct {
		anchor model.Anchor
		x, y   int
	}{
		{model.TopLeft, 10, 10},
		{model.TopCenter, 450, 10},
		{model.TopRight, 890, 10},
		{model.LeftCenter, 10, 375},
		{model.Center, 450, 375},
		{model.RightCenter, 890, 375},
		{model.BottomLeft, 10, 740},
		{model.BottomCenter, 450, 740},
		{model.BottomRight, 890, 740},
	}

	for _, tt := range tests {
		t.Run(string(tt.anchor), func(t *testing.T) {
			x, y := Resolve(cw, ch, w, h, model.Placement{Anchor: tt.anchor})
			require.Equal(t, tt.x, x)
			require.Equal(t, tt.y, y)
		})
	}
}

func TestResolve_MarginOverrideAndOffset(t *testing.T) {
	m := 0
	x, y := Resolve(200, 100, 20, 10, model.Placement{Anchor: model.BottomRight, Margin: &m})
	require.Equal(t, 180, x)
	require.Equal(t, 90, y)

	x, y = Resolve(200, 100, 20, 10, model.Placement{Anchor: model.TopLeft, OffsetX: 5, OffsetY: -3})
	require.Equal(t, 15, x)
	require.Equal(t, 7, y)
}

func TestResolve_OversizedCenterFloors(t *testing.T) {
	tests := []struct {
		name         string
		cw, ch, w, h int
		x, y         int
	}{
		{"odd overflow", 100, 50, 103, 57, -2, -4},
		{"even overflow", 100, 50, 104, 56, -2, -3},
		{"odd fit", 101, 51, 50, 20, 25, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := Resolve(tt.cw, tt.ch, tt.w, tt.h, model.Placement{Anchor: model.Center})
			require.Equal(t, tt.x, x)
			require.Equal(t, tt.y, y)
		})
	}
}

func TestResolve_OffCanvasIsNotClamped(t *testing.T) {
	x, y := Resolve(100, 100, 40, 40, model.Placement{Anchor: model.TopLeft, OffsetX: -500, OffsetY: 900})
	require.Equal(t, -490, x)
	require.Equal(t, 910, y)
}

func TestResolve_SquareRotated180MatchesUnrotated(t *testing.T) {
	for anchor := range model.AnchorsMap {
		x0, y0 := Resolve(640, 480, 64, 64, model.Placement{Anchor: anchor})
		x1, y1 := Resolve(640, 480, 64, 64, model.Placement{Anchor: anchor, RotationDeg: 180})
		x2, y2 := Resolve(640, 480, 64, 64, model.Placement{Anchor: anchor, RotationDeg: -180})
		require.Equal(t, x0, x1)
		require.Equal(t, y0, y1)
		require.Equal(t, x0, x2)
		require.Equal(t, y0, y2)
	}
}

func TestResolve_RotationUsesExpandedBox(t *testing.T) {
	rw, rh := RotatedSize(100, 20, 45)
	require.Greater(t, rw, 20)
	require.Greater(t, rh, 20)

	x, y := Resolve(1000, 800, 100, 20, model.Placement{Anchor: model.BottomRight, RotationDeg: 45})
	require.Equal(t, 1000-rw-DefaultMargin, x)
	require.Equal(t, 800-rh-DefaultMargin, y)
}

func TestRotatedSize_MatchesImagingRotate(t *testing.T) {
	src := imaging.New(73, 31, color.NRGBA{A: 255})

	for _, deg := range []float64{0, 15, 30, 45, 90, 120, -30, -90, 180, -180, 179.5} {
		rot := imaging.Rotate(src, deg, color.Transparent)
		w, h := RotatedSize(73, 31, deg)
		require.Equal(t, rot.Bounds().Dx(), w, "deg %v", deg)
		require.Equal(t, rot.Bounds().Dy(), h, "deg %v", deg)
	}
}

func TestRotatedSize_Empty(t *testing.T) {
	w, h := RotatedSize(0, 10, 30)
	require.Zero(t, w)
	require.Zero(t, h)
}
