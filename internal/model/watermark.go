package model

import (
	"fmt"
	"image"
	"math"
	"os"
	"strings"
)

type (
	ContentKind string
	Anchor      string
)

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

const (
	TopLeft      Anchor = "top-left"
	TopCenter    Anchor = "top-center"
	TopRight     Anchor = "top-right"
	LeftCenter   Anchor = "left-center"
	Center       Anchor = "center"
	RightCenter  Anchor = "right-center"
	BottomLeft   Anchor = "bottom-left"
	BottomCenter Anchor = "bottom-center"
	BottomRight  Anchor = "bottom-right"
)

var AnchorsMap = map[Anchor]bool{
	TopLeft:      true,
	TopCenter:    true,
	TopRight:     true,
	LeftCenter:   true,
	Center:       true,
	RightCenter:  true,
	BottomLeft:   true,
	BottomCenter: true,
	BottomRight:  true,
}

// Limits keep a single text layer within a sane allocation
const (
	MaxFontSizePx     = 2000
	MaxOutlineWidthPx = 200
	MaxShadowOffsetPx = 500
)

// DateToken inside a text value is replaced with the capture date of every exported photo
const DateToken = "{date}"

//--------------------

type Outline struct {
	Color   Color `json:"color"`
	WidthPx int   `json:"width_px"`
}

type Shadow struct {
	OffsetX int   `json:"offset_x"`
	OffsetY int   `json:"offset_y"`
	Color   Color `json:"color"`
}

type TextContent struct {
	Value   string   `json:"value"`
	FontRef string   `json:"font_ref,omitempty"`
	SizePx  float64  `json:"size_px"`
	Fill    Color    `json:"fill"`
	Outline *Outline `json:"outline,omitempty"`
	Shadow  *Shadow  `json:"shadow,omitempty"`
}

type ImageContent struct {
	SourcePath string `json:"source_path"`
	Opacity    int    `json:"opacity"`
}

// WatermarkContent is either text or image, Kind tells which one is set
type WatermarkContent struct {
	Kind  ContentKind   `json:"kind"`
	Text  *TextContent  `json:"text,omitempty"`
	Image *ImageContent `json:"image,omitempty"`
}

type Placement struct {
	Anchor      Anchor  `json:"anchor"`
	OffsetX     int     `json:"offset_x"`
	OffsetY     int     `json:"offset_y"`
	RotationDeg float64 `json:"rotation_deg"`
	Margin      *int    `json:"margin,omitempty"`
}

type WatermarkConfig struct {
	Content   WatermarkContent `json:"content"`
	Placement Placement        `json:"placement"`
}

//--------------------

// NewTextWatermark builds a validated text watermark config
func NewTextWatermark(text TextContent, p Placement) (WatermarkConfig, error) {
	cfg := WatermarkConfig{
		Content:   WatermarkContent{Kind: ContentText, Text: &text},
		Placement: p,
	}
	if err := cfg.Validate(); err != nil {
		return WatermarkConfig{}, err
	}
	return cfg.Clone(), nil
}

// NewImageWatermark builds a validated image watermark config, the source must decode
func NewImageWatermark(img ImageContent, p Placement) (WatermarkConfig, error) {
	cfg := WatermarkConfig{
		Content:   WatermarkContent{Kind: ContentImage, Image: &img},
		Placement: p,
	}
	if err := cfg.Validate(); err != nil {
		return WatermarkConfig{}, err
	}
	return cfg.Clone(), nil
}

// Validate is used for configs that came from JSON or templates
func (c WatermarkConfig) Validate() error {
	if err := c.Placement.Validate(); err != nil {
		return err
	}

	switch c.Content.Kind {
	case ContentText:
		if c.Content.Text == nil || c.Content.Image != nil {
			return fmt.Errorf("%w: text watermark must carry text content only", ErrInvalidConfig)
		}
		return c.Content.Text.Validate()
	case ContentImage:
		if c.Content.Image == nil || c.Content.Text != nil {
			return fmt.Errorf("%w: image watermark must carry image content only", ErrInvalidConfig)
		}
		return c.Content.Image.Validate()
	default:
		return fmt.Errorf("%w: unknown watermark kind %q", ErrInvalidConfig, c.Content.Kind)
	}
}

func (t TextContent) Validate() error {
	if strings.TrimSpace(t.Value) == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalidConfig)
	}
	if !isFinite(t.SizePx) || t.SizePx <= 0 || t.SizePx > MaxFontSizePx {
		return fmt.Errorf("%w: font size must be within (0,%d], got %v", ErrInvalidConfig, MaxFontSizePx, t.SizePx)
	}
	if err := t.Fill.Validate(); err != nil {
		return err
	}
	if t.Outline != nil {
		if t.Outline.WidthPx < 0 || t.Outline.WidthPx > MaxOutlineWidthPx {
			return fmt.Errorf("%w: outline width must be within [0,%d], got %d", ErrInvalidConfig, MaxOutlineWidthPx, t.Outline.WidthPx)
		}
		if err := t.Outline.Color.Validate(); err != nil {
			return err
		}
	}
	if t.Shadow != nil {
		if abs(t.Shadow.OffsetX) > MaxShadowOffsetPx || abs(t.Shadow.OffsetY) > MaxShadowOffsetPx {
			return fmt.Errorf("%w: shadow offset is beyond %dpx", ErrInvalidConfig, MaxShadowOffsetPx)
		}
		if err := t.Shadow.Color.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (i ImageContent) Validate() error {
	if i.Opacity < 0 || i.Opacity > 255 {
		return fmt.Errorf("%w: opacity %d is out of [0,255]", ErrInvalidConfig, i.Opacity)
	}
	if i.SourcePath == "" {
		return fmt.Errorf("%w: image watermark source is empty", ErrInvalidConfig)
	}

	f, err := os.Open(i.SourcePath)
	if err != nil {
		return fmt.Errorf("%w: watermark source %q: %v", ErrInvalidConfig, i.SourcePath, err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("%w: watermark source %q is not a decodable image: %v", ErrInvalidConfig, i.SourcePath, err)
	}
	return nil
}

func (p Placement) Validate() error {
	if !AnchorsMap[p.Anchor] {
		return fmt.Errorf("%w: unknown anchor %q", ErrInvalidConfig, p.Anchor)
	}
	if !isFinite(p.RotationDeg) || p.RotationDeg < -180 || p.RotationDeg > 180 {
		return fmt.Errorf("%w: rotation %v is out of [-180,180]", ErrInvalidConfig, p.RotationDeg)
	}
	if p.Margin != nil && *p.Margin < 0 {
		return fmt.Errorf("%w: margin must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Clone returns a deep copy, so the result shares no pointers with c
func (c WatermarkConfig) Clone() WatermarkConfig {
	out := c
	if c.Content.Text != nil {
		t := *c.Content.Text
		if t.Outline != nil {
			o := *t.Outline
			t.Outline = &o
		}
		if t.Shadow != nil {
			s := *t.Shadow
			t.Shadow = &s
		}
		out.Content.Text = &t
	}
	if c.Content.Image != nil {
		i := *c.Content.Image
		out.Content.Image = &i
	}
	if c.Placement.Margin != nil {
		m := *c.Placement.Margin
		out.Placement.Margin = &m
	}
	return out
}

// isFinite reports whether v is neither NaN nor ±Inf
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
