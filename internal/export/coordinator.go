// Package export runs a watermark over a batch of photos on a bounded worker pool
package export

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/imageproc"
	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/UnendingLoop/PhotoWatermark/internal/mwlogger"
	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/helpers"
)

const maxDefaultWorkers = 8

// Renderer - контракт для наложения водяного знака
type Renderer interface {
	Render(base image.Image, cfg model.WatermarkConfig) (*image.NRGBA, error)
}

// ResultSink receives a copy of every exported file, e.g. an object storage bucket
type ResultSink interface {
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

type Coordinator struct {
	renderer Renderer
	sink     ResultSink
	workers  int
}

// DefaultWorkers is min(NumCPU, 8)
func DefaultWorkers() int {
	return min(runtime.NumCPU(), maxDefaultWorkers)
}

// NewCoordinator creates a coordinator, non-positive workers means DefaultWorkers and sink may be nil
func NewCoordinator(r Renderer, workers int, sink ResultSink) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Coordinator{renderer: r, sink: sink, workers: workers}
}

// Run executes the job on the caller's goroutine and calls onProgress after every finished item.
// onProgress calls never overlap. Cancellation is done through ctx.
func (c *Coordinator) Run(ctx context.Context, job model.ExportJob, onProgress func(model.ProgressEvent)) (model.ExportReport, error) {
	p, err := c.prepare(job)
	if err != nil {
		return model.ExportReport{}, err
	}

	h := newHandle(p.id, len(p.sources), false)
	c.execute(ctx, h, p, onProgress)
	return h.Await(), nil
}

// Start validates the job and runs it in the background
func (c *Coordinator) Start(ctx context.Context, job model.ExportJob) (*Handle, error) {
	p, err := c.prepare(job)
	if err != nil {
		return nil, err
	}

	h := newHandle(p.id, len(p.sources), true)
	go c.execute(context.WithoutCancel(ctx), h, p, nil)
	return h, nil
}

func (c *Coordinator) execute(ctx context.Context, h *Handle, p *plan, onProgress func(model.ProgressEvent)) {
	logger := mwlogger.LoggerFromContext(ctx).With().Str("job_id", p.id).Logger()
	ctx = mwlogger.WithLogger(ctx, logger)

	started := time.Now().UTC()
	h.setRunning()
	logger.Info().Int("total", len(p.sources)).Int("workers", c.workers).Msg("Export job started")

	total := len(p.sources)
	outcomes := make([]model.ExportOutcome, total)
	dispatched := make([]bool, total)

	var (
		mu      sync.Mutex
		emitMu  sync.Mutex
		nextIdx int
		wg      sync.WaitGroup
	)

	// next hands out the following index unless the job was cancelled
	next := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if nextIdx >= total || h.cancelled.Load() || ctx.Err() != nil {
			return 0, false
		}
		i := nextIdx
		nextIdx++
		dispatched[i] = true
		return i, true
	}

	emit := func(ev model.ProgressEvent) {
		emitMu.Lock()
		defer emitMu.Unlock()
		h.record(ev.Outcome)
		if onProgress != nil {
			onProgress(ev)
		}
		if h.progress != nil {
			h.progress <- ev
		}
	}

	for w := 0; w < min(c.workers, total); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := next()
				if !ok {
					return
				}
				out := c.safeProcess(ctx, p, i)
				outcomes[i] = out
				emit(model.ProgressEvent{Index: i, Total: total, SourcePath: p.sources[i].SourcePath, Outcome: out})
			}
		}()
	}
	wg.Wait()

	state := model.StateCompleted
	for i := range outcomes {
		if !dispatched[i] {
			outcomes[i] = model.Skipped(p.sources[i].SourcePath, model.SkipCancelled)
			state = model.StateCancelled
		}
	}

	finished := time.Now().UTC()
	report := model.ExportReport{
		JobID:      p.id,
		State:      state,
		Outcomes:   outcomes,
		StartedAt:  &started,
		FinishedAt: &finished,
	}
	report.Count()

	logger.Info().
		Str("state", string(state)).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Dur("took", finished.Sub(started)).
		Msg("Export job finished")

	h.finish(report)
}

// safeProcess turns a panic of a single item into a Failed outcome
func (c *Coordinator) safeProcess(ctx context.Context, p *plan, i int) (out model.ExportOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger := mwlogger.LoggerFromContext(ctx)
			logger.Error().Interface("panic", r).Str("source", p.sources[i].SourcePath).Msg("Export item panicked")
			out = model.Failed(p.sources[i].SourcePath, fmt.Sprintf("panic: %v", r))
		}
	}()
	return c.process(ctx, p, i)
}

func (c *Coordinator) process(ctx context.Context, p *plan, i int) model.ExportOutcome {
	logger := mwlogger.LoggerFromContext(ctx)
	src := p.sources[i]

	fail := func(err error) model.ExportOutcome {
		logger.Warn().Err(err).Int("index", i).Str("source", src.SourcePath).Msg("Export item failed")
		return model.Failed(src.SourcePath, err.Error())
	}

	img := src.Decoded
	if img == nil {
		if src.SourcePath == "" {
			return fail(model.ErrEmptySource)
		}
		decoded, err := imaging.Open(src.SourcePath, imaging.AutoOrientation(true))
		if err != nil {
			return fail(fmt.Errorf("%w: decode %q: %v", model.ErrRender, src.SourcePath, err))
		}
		img = decoded
	}

	cfg := p.config
	if p.hasDate {
		cfg = imageproc.ExpandDate(cfg, captureDate(src.SourcePath))
	}

	rendered, err := c.renderer.Render(img, cfg)
	if err != nil {
		return fail(err)
	}
	result := imageproc.Resize(rendered, p.output.Resize)

	path, err := p.names.reserve(i)
	if err != nil {
		return fail(err)
	}

	if err := writeImage(path, result, p.output.Format, p.output.Quality); err != nil {
		p.names.release(path)
		return fail(err)
	}

	if c.sink != nil {
		if err := c.upload(ctx, p.id, path, p.output.Format); err != nil {
			return fail(fmt.Errorf("upload %q: %w", path, err))
		}
	}

	return model.Success(src.SourcePath, path)
}

func captureDate(path string) time.Time {
	if path == "" {
		return time.Now()
	}
	tm, err := imageproc.CaptureDate(path)
	if err != nil {
		return time.Now()
	}
	return tm
}

func (c *Coordinator) upload(ctx context.Context, jobID, path string, f model.Format) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return err
	}

	key := jobID + "/" + st.Name()
	return c.sink.Put(ctx, key, st.Size(), model.GetCType[f], file)
}

//--------------------

// plan is a validated job, immutable while workers run
type plan struct {
	id      string
	sources []model.ImageAsset
	config  model.WatermarkConfig
	output  model.OutputSpec
	hasDate bool
	names   *namer
}

func (c *Coordinator) prepare(job model.ExportJob) (*plan, error) {
	if err := job.Config.Validate(); err != nil {
		return nil, err
	}
	if len(job.Sources) > model.MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d images exceeds the limit of %d", model.ErrInvalidConfig, len(job.Sources), model.MaxBatchSize)
	}

	output := job.Output
	if output.Resize != nil {
		rs := *output.Resize
		output.Resize = &rs
	}
	if err := output.Validate(); err != nil {
		return nil, err
	}

	names, err := newNamer(job.Sources, output)
	if err != nil {
		return nil, err
	}

	id := job.ID
	if id == "" {
		id = helpers.CreateUUID()
	}

	cfg := job.Config.Clone()
	return &plan{
		id:      id,
		sources: append([]model.ImageAsset(nil), job.Sources...),
		config:  cfg,
		output:  output,
		hasDate: cfg.Content.Kind == model.ContentText && cfg.Content.Text != nil &&
			strings.Contains(cfg.Content.Text.Value, model.DateToken),
		names: names,
	}, nil
}
