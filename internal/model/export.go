package model

import (
	"fmt"
	"image"
	"time"

	"github.com/go-playground/validator/v10"
)

type (
	JobState    string
	NamingKind  string
	ResizeMode  string
	OutcomeKind string
)

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateCancelled JobState = "cancelled"
	StateRejected  JobState = "rejected" // only for queued requests that never started
)

const (
	NamingPrefix   NamingKind = "prefix"
	NamingSuffix   NamingKind = "suffix"
	NamingOriginal NamingKind = "original"
)

const (
	ResizePercent ResizeMode = "percent"
	ResizeWidth   ResizeMode = "width"
	ResizeHeight  ResizeMode = "height"
	ResizeFixed   ResizeMode = "fixed"
)

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailed  OutcomeKind = "failed"
	OutcomeSkipped OutcomeKind = "skipped"
)

const (
	DefaultPrefix  = "wm_"
	DefaultSuffix  = "_watermarked"
	DefaultQuality = 95
	SkipCancelled  = "cancelled"
	MaxBatchSize   = 1000
)

//--------------------

type ImageAsset struct {
	SourcePath string      `json:"source_path"`
	Decoded    image.Image `json:"-"`
}

type NamingRule struct {
	Kind   NamingKind `json:"kind" validate:"required,oneof=prefix suffix original"`
	Prefix string     `json:"prefix,omitempty"`
	Suffix string     `json:"suffix,omitempty"`
}

type ResizeSpec struct {
	Mode    ResizeMode `json:"mode" validate:"required,oneof=percent width height fixed"`
	Percent int        `json:"percent,omitempty" validate:"omitempty,min=1,max=1000"`
	Width   int        `json:"width,omitempty" validate:"omitempty,min=1"`
	Height  int        `json:"height,omitempty" validate:"omitempty,min=1"`
}

type OutputSpec struct {
	Directory         string      `json:"directory"`
	Naming            NamingRule  `json:"naming"`
	Format            Format      `json:"format" validate:"required,oneof=png jpeg tiff bmp gif"`
	Quality           int         `json:"quality,omitempty" validate:"min=0,max=100"`
	Resize            *ResizeSpec `json:"resize,omitempty"`
	OverwriteExisting bool        `json:"overwrite_existing,omitempty"`
}

type ExportJob struct {
	ID      string          `json:"id"`
	Sources []ImageAsset    `json:"sources"`
	Config  WatermarkConfig `json:"config"`
	Output  OutputSpec      `json:"output"`
}

// ExportRequest is the wire form of a job used by the HTTP API and the jobs topic.
// Either Config or Template must be set, Config wins when both are.
type ExportRequest struct {
	JobID    string           `json:"job_id,omitempty"`
	Sources  []string         `json:"sources"`
	Template string           `json:"template,omitempty"`
	Config   *WatermarkConfig `json:"config,omitempty"`
	Output   OutputSpec       `json:"output"`
}

// Job builds an export job from the request and the resolved config
func (r ExportRequest) Job(cfg WatermarkConfig) ExportJob {
	job := ExportJob{
		ID:      r.JobID,
		Sources: make([]ImageAsset, 0, len(r.Sources)),
		Config:  cfg,
		Output:  r.Output,
	}
	for _, s := range r.Sources {
		job.Sources = append(job.Sources, ImageAsset{SourcePath: s})
	}
	return job
}

//--------------------

type ExportOutcome struct {
	Kind       OutcomeKind `json:"kind"`
	SourcePath string      `json:"source_path"`
	OutputPath string      `json:"output_path,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

func Success(src, out string) ExportOutcome {
	return ExportOutcome{Kind: OutcomeSuccess, SourcePath: src, OutputPath: out}
}

func Failed(src, reason string) ExportOutcome {
	return ExportOutcome{Kind: OutcomeFailed, SourcePath: src, Reason: reason}
}

func Skipped(src, reason string) ExportOutcome {
	return ExportOutcome{Kind: OutcomeSkipped, SourcePath: src, Reason: reason}
}

type ProgressEvent struct {
	Index      int           `json:"index"`
	Total      int           `json:"total"`
	SourcePath string        `json:"source_path"`
	Outcome    ExportOutcome `json:"outcome"`
}

type ExportReport struct {
	JobID      string          `json:"job_id"`
	State      JobState        `json:"state"`
	Outcomes   []ExportOutcome `json:"outcomes"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Error      string          `json:"error,omitempty"` // why a queued request was rejected
}

// Count fills the per-kind counters from Outcomes
func (r *ExportReport) Count() {
	r.Succeeded, r.Failed, r.Skipped = 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Kind {
		case OutcomeSuccess:
			r.Succeeded++
		case OutcomeFailed:
			r.Failed++
		case OutcomeSkipped:
			r.Skipped++
		}
	}
}

type ExportStatus struct {
	JobID     string   `json:"job_id"`
	State     JobState `json:"state"`
	Total     int      `json:"total"`
	Done      int      `json:"done"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
}

//--------------------

var validate = validator.New()

// Validate checks the output settings and fills defaults for naming and quality.
// Directory checks against the sources belong to the export coordinator.
func (o *OutputSpec) Validate() error {
	if o.Directory == "" {
		return fmt.Errorf("%w: output directory is empty", ErrInvalidOutputPath)
	}
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: output spec: %v", ErrInvalidConfig, err)
	}
	if o.Resize != nil {
		if err := o.Resize.validateMode(); err != nil {
			return err
		}
	}

	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	switch o.Naming.Kind {
	case NamingPrefix:
		if o.Naming.Prefix == "" {
			o.Naming.Prefix = DefaultPrefix
		}
	case NamingSuffix:
		if o.Naming.Suffix == "" {
			o.Naming.Suffix = DefaultSuffix
		}
	}
	return nil
}

func (r ResizeSpec) validateMode() error {
	var ok bool
	switch r.Mode {
	case ResizePercent:
		ok = r.Percent > 0
	case ResizeWidth:
		ok = r.Width > 0
	case ResizeHeight:
		ok = r.Height > 0
	case ResizeFixed:
		ok = r.Width > 0 && r.Height > 0
	}
	if !ok {
		return fmt.Errorf("%w: resize mode %q lacks its size", ErrInvalidConfig, r.Mode)
	}
	return nil
}
