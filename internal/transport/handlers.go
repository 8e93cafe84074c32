// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"encoding/json"
	"image"
	"strconv"

	"github.com/UnendingLoop/PhotoWatermark/internal/imageproc"
	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/UnendingLoop/PhotoWatermark/internal/mwlogger"
	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/ginext"
	"golang.org/x/time/rate"
)

type WatermarkHandler struct {
	service WatermarkService
	limiter *rate.Limiter
}

type WatermarkService interface {
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

// NewWatermarkHandler creates handlers, previewRPS <= 0 disables the preview limit
func NewWatermarkHandler(svc WatermarkService, previewRPS float64) *WatermarkHandler {
	return &WatermarkHandler{
		service: svc,
		limiter: newPreviewLimiter(previewRPS),
	}
}

func (h WatermarkHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Preview expects multipart fields "image" (file), "config" (JSON) and optional "max_side"
func (h WatermarkHandler) Preview(ctx *ginext.Context) {
	if !h.limiter.Allow() {
		ctx.JSON(errorCodeDefiner(model.ErrRateLimited), map[string]string{"error": model.ErrRateLimited.Error()})
		return
	}

	var cfg model.WatermarkConfig
	if err := json.Unmarshal([]byte(ctx.PostForm("config")), &cfg); err != nil {
		ctx.JSON(400, map[string]string{"error": "config must be a watermark JSON"})
		return
	}

	maxSide := 0
	if v := ctx.PostForm("max_side"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			ctx.JSON(errorCodeDefiner(model.ErrIncorrectQuery), map[string]string{"error": "max_side must be a positive integer"})
			return
		}
		maxSide = n
	}

	// парсинг исходника
	imageFile, _, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(400, map[string]string{"error": "image is required"})
		return
	}
	defer closeFileFlow(imageFile)

	base, err := imaging.Decode(imageFile, imaging.AutoOrientation(true))
	if err != nil {
		ctx.JSON(errorCodeDefiner(model.ErrEmptySource), map[string]string{"error": model.ErrEmptySource.Error()})
		return
	}

	res, err := h.service.RenderPreview(ctx.Request.Context(), base, cfg, maxSide)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	ctx.Writer.Header().Set("Content-Type", model.GetCType[model.FormatPNG])
	ctx.Writer.WriteHeader(200)
	if err := imageproc.Encode(ctx.Writer, res, model.FormatPNG, 0); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).Msg("Failed to write preview")
	}
}

func (h WatermarkHandler) StartExport(ctx *ginext.Context) {
	var req model.ExportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse export request"})
		return
	}

	job, err := h.service.BuildJob(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	id, err := h.service.StartBatchExport(ctx.Request.Context(), job)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	ctx.JSON(202, map[string]string{"id": id})
}

func (h WatermarkHandler) ExportStatus(ctx *ginext.Context) {
	res, err := h.service.ExportStatus(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	ctx.JSON(200, res)
}

func (h WatermarkHandler) ExportReport(ctx *ginext.Context) {
	res, err := h.service.ExportReport(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	ctx.JSON(200, res)
}

func (h WatermarkHandler) CancelExport(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.CancelExport(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	ctx.Status(202)
}

//--------------------

func (h WatermarkHandler) ListTemplates(ctx *ginext.Context) {
	res, err := h.service.ListTemplates(ctx.Request.Context())
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	ctx.JSON(200, map[string][]string{"templates": res})
}

func (h WatermarkHandler) LoadTemplate(ctx *ginext.Context) {
	res, err := h.service.LoadTemplate(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	ctx.JSON(200, res)
}

// SaveTemplate takes the name from the path, a name inside the body is ignored
func (h WatermarkHandler) SaveTemplate(ctx *ginext.Context) {
	var rec model.TemplateRecord
	if err := ctx.ShouldBindJSON(&rec); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse template"})
		return
	}
	rec.Name = ctx.Param("name")
	rec.CreatedAt, rec.UpdatedAt = nil, nil

	if err := h.service.SaveTemplate(ctx.Request.Context(), &rec); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	ctx.JSON(200, rec)
}

func (h WatermarkHandler) DeleteTemplate(ctx *ginext.Context) {
	if err := h.service.DeleteTemplate(ctx.Request.Context(), ctx.Param("name")); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": errorMessage(err)})
		return
	}

	ctx.Status(204)
}
