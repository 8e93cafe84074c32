package main

import (
	"context"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

type ExportWorkerService interface {
	RunExport(ctx context.Context, req model.ExportRequest) (model.ExportReport, error)
}
