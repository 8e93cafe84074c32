package export

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

// Handle controls a started export job
type Handle struct {
	id        string
	total     int
	cancelled atomic.Bool
	progress  chan model.ProgressEvent
	done      chan struct{}

	mu        sync.RWMutex
	state     model.JobState
	finished  int
	succeeded int
	failed    int
	report    model.ExportReport
}

func newHandle(id string, total int, withProgress bool) *Handle {
	h := &Handle{
		id:    id,
		total: total,
		done:  make(chan struct{}),
		state: model.StatePending,
	}
	if withProgress {
		h.progress = make(chan model.ProgressEvent, total)
	}
	return h
}

func (h *Handle) ID() string {
	return h.id
}

// Cancel stops dispatching new items, items already being processed are finished.
// It is safe to call any number of times.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
}

// Progress yields one event per processed item in completion order and is closed when the job ends.
// The channel is buffered for the whole batch, so it may be read late or not at all.
func (h *Handle) Progress() <-chan model.ProgressEvent {
	return h.progress
}

// Done is closed once the report is ready
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Await blocks until the job ends and returns its report
func (h *Handle) Await() model.ExportReport {
	<-h.done
	h.mu.RLock()
	defer h.mu.RUnlock()

	rep := h.report
	rep.Outcomes = slices.Clone(h.report.Outcomes)
	return rep
}

// AwaitContext is Await bounded by ctx
func (h *Handle) AwaitContext(ctx context.Context) (model.ExportReport, error) {
	select {
	case <-h.done:
		return h.Await(), nil
	case <-ctx.Done():
		return model.ExportReport{}, ctx.Err()
	}
}

func (h *Handle) State() model.JobState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Status is a snapshot of the job counters
func (h *Handle) Status() model.ExportStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return model.ExportStatus{
		JobID:     h.id,
		State:     h.state,
		Total:     h.total,
		Done:      h.finished,
		Succeeded: h.succeeded,
		Failed:    h.failed,
	}
}

// IsTerminal reports whether the job has reached completed or cancelled
func (h *Handle) IsTerminal() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Handle) setRunning() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = model.StateRunning
}

func (h *Handle) record(o model.ExportOutcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished++
	switch o.Kind {
	case model.OutcomeSuccess:
		h.succeeded++
	case model.OutcomeFailed:
		h.failed++
	}
}

func (h *Handle) finish(rep model.ExportReport) {
	h.mu.Lock()
	h.report = rep
	h.state = rep.State
	h.mu.Unlock()

	if h.progress != nil {
		close(h.progress)
	}
	close(h.done)
}
