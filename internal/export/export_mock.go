package export

import (
	"context"
	"image"
	"io"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

// MOCK RENDERER

type mockRenderer struct {
	renderFn func(base image.Image, cfg model.WatermarkConfig) (*image.NRGBA, error)
}

func (m *mockRenderer) Render(base image.Image, cfg model.WatermarkConfig) (*image.NRGBA, error) {
	return m.renderFn(base, cfg)
}

// MOCK SINK

type mockSink struct {
	putFn func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
}

func (m *mockSink) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}
