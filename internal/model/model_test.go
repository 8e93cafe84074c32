package model

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func writePNG(t *testing.T, dir string) string {
	t.Helper()

	img := imaging.New(8, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	path := filepath.Join(dir, "wm.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestNewTextWatermark(t *testing.T) {
	white := Color{255, 255, 255, 255}

	tests := []struct {
		name      string
		text      TextContent
		placement Placement
		wantErr   bool
	}{
		{
			name:      "OK",
			text:      TextContent{Value: "2024-03-15", SizePx: 24, Fill: white},
			placement: Placement{Anchor: BottomRight},
		},
		{
			name:      "OK with outline and shadow",
			text:      TextContent{Value: "x", SizePx: 10, Fill: white, Outline: &Outline{Color: Color{0, 0, 0, 255}, WidthPx: 2}, Shadow: &Shadow{OffsetX: 2, OffsetY: -2, Color: Color{0, 0, 0, 64}}},
			placement: Placement{Anchor: Center, RotationDeg: -180},
		},
		{
			name:      "zero font size",
			text:      TextContent{Value: "x", SizePx: 0, Fill: white},
			placement: Placement{Anchor: TopLeft},
			wantErr:   true,
		},
		{
			name:      "empty text",
			text:      TextContent{Value: "   ", SizePx: 12, Fill: white},
			placement: Placement{Anchor: TopLeft},
			wantErr:   true,
		},
		{
			name:      "rotation out of range",
			text:      TextContent{Value: "x", SizePx: 12, Fill: white},
			placement: Placement{Anchor: TopLeft, RotationDeg: 180.5},
			wantErr:   true,
		},
		{
			name:      "alpha out of range",
			text:      TextContent{Value: "x", SizePx: 12, Fill: Color{255, 255, 255, 256}},
			placement: Placement{Anchor: TopLeft},
			wantErr:   true,
		},
		{
			name:      "negative outline width",
			text:      TextContent{Value: "x", SizePx: 12, Fill: white, Outline: &Outline{WidthPx: -1}},
			placement: Placement{Anchor: TopLeft},
			wantErr:   true,
		},
		{
			name:      "unknown anchor",
			text:      TextContent{Value: "x", SizePx: 12, Fill: white},
			placement: Placement{Anchor: "middle"},
			wantErr:   true,
		},
		{
			name:      "NaN font size",
			text:      TextContent{Value: "x", SizePx: math.NaN(), Fill: white},
			placement: Placement{Anchor: TopLeft},
			wantErr:   true,
		},
		{
			name:      "infinite font size",
			text:      TextContent{Value: "x", SizePx: math.Inf(1), Fill: white},
			placement: Placement{Anchor: TopLeft},
			wantErr:   true,
		},
		{
			name:      "font size too big",
			text:      TextContent{Value: "x", SizePx: 1e9, Fill: white},
			placement: Placement{Anchor: TopLeft},
			wantErr:   true,
		},
		{
			name:      "max font size",
			text:      TextContent{Value: "x", SizePx: MaxFontSizePx, Fill: white},
			placement: Placement{Anchor: TopLeft},
		},
		{
			name:      "outline too wide",
			text:      TextContent{Value: "x", SizePx: 12, Fill: white, Outline: &Outline{WidthPx: MaxOutlineWidthPx + 1}},
			placement: Placement{Anchor: TopLeft},
			wantErr:   true,
		},
		{
			name:      "shadow too far",
			text:      TextContent{Value: "x", SizePx: 12, Fill: white, Shadow: &Shadow{OffsetX: 1, OffsetY: -(MaxShadowOffsetPx + 1)}},
			placement: Placement{Anchor: TopLeft},
			wantErr:   true,
		},
		{
			name:      "NaN rotation",
			text:      TextContent{Value: "x", SizePx: 12, Fill: white},
			placement: Placement{Anchor: TopLeft, RotationDeg: math.NaN()},
			wantErr:   true,
		},
		{
			name:      "infinite rotation",
			text:      TextContent{Value: "x", SizePx: 12, Fill: white},
			placement: Placement{Anchor: TopLeft, RotationDeg: math.Inf(-1)},
			wantErr:   true,
		},
		{
			name:      "negative margin",
			text:      TextContent{Value: "x", SizePx: 12, Fill: white},
			placement: Placement{Anchor: TopLeft, Margin: ptr(-1)},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewTextWatermark(tt.text, tt.placement)

			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}

			require.NoError(t, err)
			require.Equal(t, ContentText, cfg.Content.Kind)
			require.Equal(t, tt.text.Value, cfg.Content.Text.Value)
		})
	}
}

func TestNewImageWatermark(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir)
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("not-an-image"), 0o644))

	tests := []struct {
		name    string
		content ImageContent
		wantErr bool
	}{
		{name: "OK", content: ImageContent{SourcePath: good, Opacity: 128}},
		{name: "opacity too big", content: ImageContent{SourcePath: good, Opacity: 300}, wantErr: true},
		{name: "negative opacity", content: ImageContent{SourcePath: good, Opacity: -1}, wantErr: true},
		{name: "missing source", content: ImageContent{SourcePath: filepath.Join(dir, "nope.png"), Opacity: 10}, wantErr: true},
		{name: "undecodable source", content: ImageContent{SourcePath: broken, Opacity: 10}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImageWatermark(tt.content, Placement{Anchor: Center})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWatermarkConfig_Validate_KindMismatch(t *testing.T) {
	cfg := WatermarkConfig{
		Content:   WatermarkContent{Kind: ContentImage, Text: &TextContent{Value: "x", SizePx: 10}},
		Placement: Placement{Anchor: Center},
	}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Content.Kind = "video"
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestWatermarkConfig_Clone(t *testing.T) {
	cfg, err := NewTextWatermark(TextContent{
		Value:   "x",
		SizePx:  10,
		Fill:    Color{1, 2, 3, 4},
		Outline: &Outline{WidthPx: 1},
		Shadow:  &Shadow{OffsetX: 1},
	}, Placement{Anchor: Center, Margin: ptr(5)})
	require.NoError(t, err)

	cp := cfg.Clone()
	cp.Content.Text.Outline.WidthPx = 9
	cp.Content.Text.Shadow.OffsetX = 9
	*cp.Placement.Margin = 9

	require.Equal(t, 1, cfg.Content.Text.Outline.WidthPx)
	require.Equal(t, 1, cfg.Content.Text.Shadow.OffsetX)
	require.Equal(t, 5, *cfg.Placement.Margin)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{in: "white", want: Color{255, 255, 255, 255}},
		{in: " Black ", want: Color{0, 0, 0, 255}},
		{in: "#f00", want: Color{255, 0, 0, 255}},
		{in: "#00ff0080", want: Color{0, 255, 0, 128}},
		{in: "10, 20, 30", want: Color{10, 20, 30, 255}},
		{in: "10,20,30,40", want: Color{10, 20, 30, 40}},
		{in: "10,20,300", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
		{in: "purple-ish", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseColor(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, c)
			require.Equal(t, color.NRGBA{R: uint8(tt.want.R), G: uint8(tt.want.G), B: uint8(tt.want.B), A: uint8(tt.want.A)}, c.NRGBA())
		})
	}
}

func TestOutputSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    OutputSpec
		wantErr error
		check   func(t *testing.T, s OutputSpec)
	}{
		{
			name: "defaults filled",
			spec: OutputSpec{Directory: "/out", Naming: NamingRule{Kind: NamingPrefix}, Format: FormatJPEG},
			check: func(t *testing.T, s OutputSpec) {
				require.Equal(t, DefaultPrefix, s.Naming.Prefix)
				require.Equal(t, DefaultQuality, s.Quality)
			},
		},
		{
			name: "suffix default",
			spec: OutputSpec{Directory: "/out", Naming: NamingRule{Kind: NamingSuffix}, Format: FormatPNG, Quality: 40},
			check: func(t *testing.T, s OutputSpec) {
				require.Equal(t, DefaultSuffix, s.Naming.Suffix)
				require.Equal(t, 40, s.Quality)
			},
		},
		{
			name:    "empty directory",
			spec:    OutputSpec{Naming: NamingRule{Kind: NamingPrefix}, Format: FormatPNG},
			wantErr: ErrInvalidOutputPath,
		},
		{
			name:    "quality out of range",
			spec:    OutputSpec{Directory: "/out", Naming: NamingRule{Kind: NamingPrefix}, Format: FormatJPEG, Quality: 101},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown format",
			spec:    OutputSpec{Directory: "/out", Naming: NamingRule{Kind: NamingPrefix}, Format: "webp"},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown naming",
			spec:    OutputSpec{Directory: "/out", Naming: NamingRule{Kind: "random"}, Format: FormatPNG},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "resize without size",
			spec:    OutputSpec{Directory: "/out", Naming: NamingRule{Kind: NamingPrefix}, Format: FormatPNG, Resize: &ResizeSpec{Mode: ResizeFixed, Width: 10}},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "resize OK",
			spec: OutputSpec{Directory: "/out", Naming: NamingRule{Kind: NamingOriginal}, Format: FormatPNG, Resize: &ResizeSpec{Mode: ResizePercent, Percent: 50}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.spec
			err := s.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestValidateTemplateName(t *testing.T) {
	require.NoError(t, ValidateTemplateName("holiday 2024"))
	require.ErrorIs(t, ValidateTemplateName(""), ErrInvalidConfig)
	require.ErrorIs(t, ValidateTemplateName("../etc"), ErrInvalidConfig)
	require.ErrorIs(t, ValidateTemplateName(".hidden"), ErrInvalidConfig)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("jpg")
	require.NoError(t, err)
	require.Equal(t, FormatJPEG, f)
	require.False(t, f.HasAlpha())

	_, err = ParseFormat("webp")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportReport_Count(t *testing.T) {
	r := ExportReport{Outcomes: []ExportOutcome{
		Success("a", "b"), Failed("c", "bad"), Skipped("d", SkipCancelled), Success("e", "f"),
	}}
	r.Count()
	require.Equal(t, 2, r.Succeeded)
	require.Equal(t, 1, r.Failed)
	require.Equal(t, 1, r.Skipped)
}
