package main

import (
	"context"
	"image"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

type WatermarkAPIService interface {
	RenderPreview(ctx context.Context, base image.Image, cfg model.WatermarkConfig, maxSide int) (image.Image, error)
	BuildJob(ctx context.Context, req model.ExportRequest) (model.ExportJob, error)
	StartBatchExport(ctx context.Context, job model.ExportJob) (string, error)
	CancelExport(ctx context.Context, id string) error
	ExportStatus(ctx context.Context, id string) (model.ExportStatus, error)
	ExportReport(ctx context.Context, id string) (model.ExportReport, error)
	SaveTemplate(ctx context.Context, rec *model.TemplateRecord) error
	LoadTemplate(ctx context.Context, name string) (*model.TemplateRecord, error)
	ListTemplates(ctx context.Context) ([]string, error)
	DeleteTemplate(ctx context.Context, name string) error
}
