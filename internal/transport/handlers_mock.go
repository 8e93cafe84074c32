package transport

import (
	"context"
	"image"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/gin-gonic/gin"
)

type mockWatermarkService struct {
	renderPreviewFn    func(ctx context.Context, base image.Image, cfg model.WatermarkConfig, maxSide int) (image.Image, error)
	buildJobFn         func(ctx context.Context, req model.ExportRequest) (model.ExportJob, error)
	startBatchExportFn func(ctx context.Context, job model.ExportJob) (string, error)
	cancelExportFn     func(ctx context.Context, id string) error
	exportStatusFn     func(ctx context.Context, id string) (model.ExportStatus, error)
	exportReportFn     func(ctx context.Context, id string) (model.ExportReport, error)
	saveTemplateFn     func(ctx context.Context, rec *model.TemplateRecord) error
	loadTemplateFn     func(ctx context.Context, name string) (*model.TemplateRecord, error)
	listTemplatesFn    func(ctx context.Context) ([]string, error)
	deleteTemplateFn   func(ctx context.Context, name string) error
}

func (m *mockWatermarkService) RenderPreview(ctx context.Context, base image.Image, cfg model.WatermarkConfig, maxSide int) (image.Image, error) {
	return m.renderPreviewFn(ctx, base, cfg, maxSide)
}

func (m *mockWatermarkService) BuildJob(ctx context.Context, req model.ExportRequest) (model.ExportJob, error) {
	return m.buildJobFn(ctx, req)
}

func (m *mockWatermarkService) StartBatchExport(ctx context.Context, job model.ExportJob) (string, error) {
	return m.startBatchExportFn(ctx, job)
}

func (m *mockWatermarkService) CancelExport(ctx context.Context, id string) error {
	return m.cancelExportFn(ctx, id)
}

func (m *mockWatermarkService) ExportStatus(ctx context.Context, id string) (model.ExportStatus, error) {
	return m.exportStatusFn(ctx, id)
}

func (m *mockWatermarkService) ExportReport(ctx context.Context, id string) (model.ExportReport, error) {
	return m.exportReportFn(ctx, id)
}

func (m *mockWatermarkService) SaveTemplate(ctx context.Context, rec *model.TemplateRecord) error {
	return m.saveTemplateFn(ctx, rec)
}

func (m *mockWatermarkService) LoadTemplate(ctx context.Context, name string) (*model.TemplateRecord, error) {
	return m.loadTemplateFn(ctx, name)
}

func (m *mockWatermarkService) ListTemplates(ctx context.Context) ([]string, error) {
	return m.listTemplatesFn(ctx)
}

func (m *mockWatermarkService) DeleteTemplate(ctx context.Context, name string) error {
	return m.deleteTemplateFn(ctx, name)
}

func init() {
	gin.SetMode(gin.TestMode)
}
