// Package imageproc provides operations for images: watermark rendering and compositing, resizing, preview fitting and encoding.
package imageproc

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/UnendingLoop/PhotoWatermark/internal/position"
	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 32

// Renderer builds watermark layers and composites them onto photos.
// It is safe for concurrent use, parsed fonts and decoded watermark sources are cached.
type Renderer struct {
	fonts   *FontCache
	sources *lru.Cache[string, *image.NRGBA]
}

func NewRenderer(cacheSize int) (*Renderer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	fonts, err := NewFontCache(cacheSize)
	if err != nil {
		return nil, err
	}

	sources, err := lru.New[string, *image.NRGBA](cacheSize)
	if err != nil {
		return nil, err
	}

	return &Renderer{fonts: fonts, sources: sources}, nil
}

// Render composites the watermark described by cfg onto a copy of base.
// base is never modified.
func (r *Renderer) Render(base image.Image, cfg model.WatermarkConfig) (*image.NRGBA, error) {
	layer, at, err := r.Place(base, cfg)
	if err != nil {
		return nil, err
	}

	return imaging.Overlay(base, layer, at, 1.0), nil
}

// Place returns the rotated layer and its top-left corner in base coordinates
func (r *Renderer) Place(base image.Image, cfg model.WatermarkConfig) (*image.NRGBA, image.Point, error) {
	if base == nil {
		return nil, image.Point{}, fmt.Errorf("%w: nil base image", model.ErrRender)
	}
	b := base.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, image.Point{}, fmt.Errorf("%w: zero-area canvas %dx%d", model.ErrRender, b.Dx(), b.Dy())
	}

	layer, err := r.Layer(cfg)
	if err != nil {
		return nil, image.Point{}, err
	}

	x, y := position.ResolveBox(b.Dx(), b.Dy(), layer.Bounds().Dx(), layer.Bounds().Dy(), cfg.Placement)
	return layer, image.Pt(x, y).Add(b.Min), nil
}

// Layer renders the watermark at its natural size and applies the rotation
func (r *Renderer) Layer(cfg model.WatermarkConfig) (*image.NRGBA, error) {
	var (
		layer *image.NRGBA
		err   error
	)

	switch cfg.Content.Kind {
	case model.ContentText:
		if cfg.Content.Text == nil {
			return nil, fmt.Errorf("%w: text content is missing", model.ErrRender)
		}
		layer, err = r.textLayer(cfg.Content.Text)
	case model.ContentImage:
		if cfg.Content.Image == nil {
			return nil, fmt.Errorf("%w: image content is missing", model.ErrRender)
		}
		layer, err = r.imageLayer(cfg.Content.Image)
	default:
		return nil, fmt.Errorf("%w: unknown watermark kind %q", model.ErrRender, cfg.Content.Kind)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Placement.RotationDeg != 0 && !layer.Bounds().Empty() {
		layer = imaging.Rotate(layer, cfg.Placement.RotationDeg, color.Transparent)
	}
	return layer, nil
}

func (r *Renderer) imageLayer(ic *model.ImageContent) (*image.NRGBA, error) {
	src, err := r.source(ic.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: watermark source %q: %v", model.ErrRender, ic.SourcePath, err)
	}
	return scaleAlpha(src, ic.Opacity), nil
}

// source decodes a watermark image once per path and modification time
func (r *Renderer) source(path string) (*image.NRGBA, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, errors.New("source is a directory")
	}

	key := fmt.Sprintf("%s|%d|%d", path, st.ModTime().UnixNano(), st.Size())
	if img, ok := r.sources.Get(key); ok {
		return img, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	nrgba := imaging.Clone(img)
	r.sources.Add(key, nrgba)
	return nrgba, nil
}

// scaleAlpha returns a copy of src with every alpha value multiplied by opacity/255
func scaleAlpha(src *image.NRGBA, opacity int) *image.NRGBA {
	dst := imaging.Clone(src)
	if opacity >= 255 {
		return dst
	}

	op := uint32(max(opacity, 0))
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = uint8((uint32(dst.Pix[i])*op + 127) / 255)
	}
	return dst
}

// trimTransparent crops img to the smallest rectangle holding all pixels with non-zero alpha
func trimTransparent(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}

	if maxX < minX {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	return imaging.Crop(img, image.Rect(minX, minY, maxX+1, maxY+1))
}
