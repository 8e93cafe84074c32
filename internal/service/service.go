// Package service provides business-logic for the app
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/export"
	"github.com/UnendingLoop/PhotoWatermark/internal/imageproc"
	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/UnendingLoop/PhotoWatermark/internal/mwlogger"
	"github.com/UnendingLoop/PhotoWatermark/internal/repository"
	"github.com/google/uuid"
)

const (
	DefaultPreviewMaxSide = 1024
	maxRetainedJobs       = 64
)

type WatermarkService struct {
	repo           repository.TemplateRepo
	renderer       Renderer
	exporter       Exporter
	previewMaxSide int

	mu    sync.Mutex
	jobs  map[string]*export.Handle
	order []string
}

// Renderer - контракт для отрисовки превью
type Renderer interface {
	Render(base image.Image, cfg model.WatermarkConfig) (*image.NRGBA, error)
}

// Exporter - контракт для запуска пакетного экспорта
type Exporter interface {
	Start(ctx context.Context, job model.ExportJob) (*export.Handle, error)
	Run(ctx context.Context, job model.ExportJob, onProgress func(model.ProgressEvent)) (model.ExportReport, error)
}

func NewWatermarkService(repo repository.TemplateRepo, r Renderer, exp Exporter, previewMaxSide int) *WatermarkService {
	if previewMaxSide <= 0 {
		previewMaxSide = DefaultPreviewMaxSide
	}
	return &WatermarkService{
		repo:           repo,
		renderer:       r,
		exporter:       exp,
		previewMaxSide: previewMaxSide,
		jobs:           make(map[string]*export.Handle),
	}
}

// RenderPreview composites cfg onto base on the caller's goroutine and shrinks the result to maxSide.
// {date} is shown as today's date.
func (s *WatermarkService) RenderPreview(ctx context.Context, base image.Image, cfg model.WatermarkConfig, maxSide int) (image.Image, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if base == nil || base.Bounds().Empty() {
		return nil, model.ErrEmptySource
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if maxSide <= 0 || maxSide > s.previewMaxSide {
		maxSide = s.previewMaxSide
	}

	res, err := s.renderer.Render(base, imageproc.ExpandDate(cfg, time.Now()))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to render preview")
		if errors.Is(err, model.ErrRender) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrRender, err)
	}

	return imageproc.PreviewFit(res, maxSide), nil
}

// BuildJob turns a request into a job, loading the named template when no inline config is given
func (s *WatermarkService) BuildJob(ctx context.Context, req model.ExportRequest) (model.ExportJob, error) {
	if req.Config != nil {
		return req.Job(*req.Config), nil
	}
	if req.Template == "" {
		return model.ExportJob{}, fmt.Errorf("%w: either config or template is required", model.ErrInvalidConfig)
	}

	rec, err := s.LoadTemplate(ctx, req.Template)
	if err != nil {
		return model.ExportJob{}, err
	}
	return req.Job(rec.Config), nil
}

// RunExport executes a request on the caller's goroutine without registering it
func (s *WatermarkService) RunExport(ctx context.Context, req model.ExportRequest) (model.ExportReport, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	job, err := s.BuildJob(ctx, req)
	if err != nil {
		return model.ExportReport{}, err
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	return s.exporter.Run(ctx, job, func(ev model.ProgressEvent) {
		logger.Debug().
			Str("job_id", job.ID).
			Int("index", ev.Index).
			Int("total", ev.Total).
			Str("outcome", string(ev.Outcome.Kind)).
			Msg("Export progress")
	})
}

// StartBatchExport validates and starts the job, the returned ID addresses it afterwards
func (s *WatermarkService) StartBatchExport(ctx context.Context, job model.ExportJob) (string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	// генерируем UUID
	job.ID = uuid.New().String()

	h, err := s.exporter.Start(ctx, job)
	if err != nil {
		logger.Info().Err(err).Msg("Export job rejected")
		return "", err
	}

	s.mu.Lock()
	s.jobs[h.ID()] = h
	s.order = append(s.order, h.ID())
	s.pruneLocked()
	s.mu.Unlock()

	logger.Info().Str("job_id", h.ID()).Int("total", len(job.Sources)).Msg("Export job registered")
	return h.ID(), nil
}

func (s *WatermarkService) CancelExport(ctx context.Context, id string) error {
	h, err := s.handle(id)
	if err != nil {
		return err
	}
	h.Cancel()
	logger := mwlogger.LoggerFromContext(ctx)
	logger.Info().Str("job_id", id).Msg("Export job cancel requested")
	return nil
}

func (s *WatermarkService) ExportStatus(ctx context.Context, id string) (model.ExportStatus, error) {
	h, err := s.handle(id)
	if err != nil {
		return model.ExportStatus{}, err
	}
	return h.Status(), nil
}

// ExportReport returns the final report without waiting, ErrJobRunning while the job is not finished
func (s *WatermarkService) ExportReport(ctx context.Context, id string) (model.ExportReport, error) {
	h, err := s.handle(id)
	if err != nil {
		return model.ExportReport{}, err
	}
	if !h.IsTerminal() {
		return model.ExportReport{}, model.ErrJobRunning
	}
	return h.Await(), nil
}

// AwaitReport blocks until the job ends or ctx is done
func (s *WatermarkService) AwaitReport(ctx context.Context, id string) (model.ExportReport, error) {
	h, err := s.handle(id)
	if err != nil {
		return model.ExportReport{}, err
	}
	return h.AwaitContext(ctx)
}

func (s *WatermarkService) handle(id string) (*export.Handle, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrJobNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return h, nil
}

// pruneLocked forgets the oldest finished jobs beyond maxRetainedJobs
func (s *WatermarkService) pruneLocked() {
	terminal := 0
	for _, id := range s.order {
		if s.jobs[id].IsTerminal() {
			terminal++
		}
	}

	kept := s.order[:0]
	for _, id := range s.order {
		if terminal > maxRetainedJobs && s.jobs[id].IsTerminal() {
			delete(s.jobs, id)
			terminal--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

//--------------------

func (s *WatermarkService) SaveTemplate(ctx context.Context, rec *model.TemplateRecord) error {
	logger := mwlogger.LoggerFromContext(ctx)

	rec.Name = strings.TrimSpace(rec.Name)
	if err := model.ValidateTemplateName(rec.Name); err != nil {
		return err
	}
	if err := rec.Config.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	rec.UpdatedAt = &now

	if err := s.repo.Save(ctx, rec); err != nil {
		logger.Error().Err(err).Str("template", rec.Name).Msg("Failed to save template")
		return err
	}
	return nil
}

func (s *WatermarkService) LoadTemplate(ctx context.Context, name string) (*model.TemplateRecord, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	name = strings.TrimSpace(name)

	if err := model.ValidateTemplateName(name); err != nil {
		return nil, err
	}

	rec, err := s.repo.Load(ctx, name)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			logger.Error().Err(err).Str("template", name).Msg("Failed to load template")
		}
		return nil, err
	}
	return rec, nil
}

func (s *WatermarkService) ListTemplates(ctx context.Context) ([]string, error) {
	res, err := s.repo.List(ctx)
	if err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Failed to list templates")
		return nil, err
	}
	return res, nil
}

func (s *WatermarkService) DeleteTemplate(ctx context.Context, name string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	name = strings.TrimSpace(name)

	if err := model.ValidateTemplateName(name); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, name); err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			logger.Error().Err(err).Str("template", name).Msg("Failed to delete template")
		}
		return err
	}
	return nil
}

// ImportTemplate saves a template read from a JSON file.
// A record without a name is named after the file.
func (s *WatermarkService) ImportTemplate(ctx context.Context, path string) (*model.TemplateRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", model.ErrPersistence, path, err)
	}

	rec, err := decodeTemplate(data)
	if err != nil {
		return nil, err
	}
	if rec.Name == "" {
		rec.Name = templateNameFromPath(path)
	}

	if err := s.SaveTemplate(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ExportTemplate writes a stored template to path as JSON
func (s *WatermarkService) ExportTemplate(ctx context.Context, name, path string) error {
	rec, err := s.LoadTemplate(ctx, name)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: write %q: %v", model.ErrPersistence, path, err)
	}
	return nil
}
