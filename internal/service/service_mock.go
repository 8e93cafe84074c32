package service

import (
	"context"
	"image"

	"github.com/UnendingLoop/PhotoWatermark/internal/export"
	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

// MOCK RESPOSITORY

type mockRepo struct {
	saveFn   func(ctx context.Context, rec *model.TemplateRecord) error
	loadFn   func(ctx context.Context, name string) (*model.TemplateRecord, error)
	listFn   func(ctx context.Context) ([]string, error)
	deleteFn func(ctx context.Context, name string) error
}

func (m *mockRepo) Save(ctx context.Context, rec *model.TemplateRecord) error {
	return m.saveFn(ctx, rec)
}

func (m *mockRepo) Load(ctx context.Context, name string) (*model.TemplateRecord, error) {
	return m.loadFn(ctx, name)
}

func (m *mockRepo) List(ctx context.Context) ([]string, error) {
	return m.listFn(ctx)
}

func (m *mockRepo) Delete(ctx context.Context, name string) error {
	return m.deleteFn(ctx, name)
}

// MOCK RENDERER

type mockRenderer struct {
	renderFn func(base image.Image, cfg model.WatermarkConfig) (*image.NRGBA, error)
}

func (m *mockRenderer) Render(base image.Image, cfg model.WatermarkConfig) (*image.NRGBA, error) {
	return m.renderFn(base, cfg)
}

// MOCK EXPORTER

type mockExporter struct {
	startFn func(ctx context.Context, job model.ExportJob) (*export.Handle, error)
	runFn   func(ctx context.Context, job model.ExportJob, onProgress func(model.ProgressEvent)) (model.ExportReport, error)
}

func (m *mockExporter) Start(ctx context.Context, job model.ExportJob) (*export.Handle, error) {
	return m.startFn(ctx, job)
}

func (m *mockExporter) Run(ctx context.Context, job model.ExportJob, onProgress func(model.ProgressEvent)) (model.ExportReport, error) {
	return m.runFn(ctx, job, onProgress)
}
