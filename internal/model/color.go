package model

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	A int `json:"a"`
}

var namedColors = map[string]Color{
	"white":   {255, 255, 255, 255},
	"black":   {0, 0, 0, 255},
	"red":     {255, 0, 0, 255},
	"green":   {0, 128, 0, 255},
	"blue":    {0, 0, 255, 255},
	"yellow":  {255, 255, 0, 255},
	"cyan":    {0, 255, 255, 255},
	"magenta": {255, 0, 255, 255},
	"gray":    {128, 128, 128, 255},
	"grey":    {128, 128, 128, 255},
}

func (c Color) Validate() error {
	for _, v := range []int{c.R, c.G, c.B, c.A} {
		if v < 0 || v > 255 {
			return fmt.Errorf("%w: color channel %d is out of [0,255]", ErrInvalidConfig, v)
		}
	}
	return nil
}

// NRGBA converts a validated color, channels are expected to be in range
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: uint8(c.A)}
}

// ParseColor reads a color name, "#RGB", "#RRGGBB", "#RRGGBBAA" or "r,g,b[,a]"
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	if strings.HasPrefix(s, "#") {
		return parseHexColor(s[1:])
	}

	parts := strings.Split(s, ",")
	if len(parts) == 3 || len(parts) == 4 {
		vals := []int{0, 0, 0, 255}
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return Color{}, fmt.Errorf("%w: bad color component %q", ErrInvalidConfig, p)
			}
			vals[i] = v
		}
		c := Color{R: vals[0], G: vals[1], B: vals[2], A: vals[3]}
		return c, c.Validate()
	}

	return Color{}, fmt.Errorf("%w: unknown color %q", ErrInvalidConfig, s)
}

func parseHexColor(h string) (Color, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return Color{}, fmt.Errorf("%w: bad hex color %q", ErrInvalidConfig, h)
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: bad hex color %q", ErrInvalidConfig, h)
	}

	return Color{
		R: int(v >> 24 & 0xff),
		G: int(v >> 16 & 0xff),
		B: int(v >> 8 & 0xff),
		A: int(v & 0xff),
	}, nil
}
