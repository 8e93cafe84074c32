// Package worker runs export requests taken from the jobs topic and publishes their reports
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/UnendingLoop/PhotoWatermark/internal/mwlogger"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/helpers"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type ExportWorkerService interface {
	RunExport(ctx context.Context, req model.ExportRequest) (model.ExportReport, error)
}

// ReportPublisher - контракт для отправки отчетов в очередь
type ReportPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

// Стратегия ретрая отправки отчета
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    2 * time.Second,
	Backoff:  1.5,
}

type Worker struct {
	service   ExportWorkerService
	publisher ReportPublisher
	queue     <-chan kafkago.Message
	consumer  Committer
}

func NewWorkerInstance(svc ExportWorkerService, pub ReportPublisher, q <-chan kafkago.Message, cons Committer) *Worker {
	return &Worker{service: svc, publisher: pub, queue: q, consumer: cons}
}

// StartWorker handles messages one by one. A message is committed only after its report is published,
// so a crash in between makes the job run again.
func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			if err := w.handle(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Str("key", string(msg.Key)).Msg("Export request is left uncommitted")
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Msg("Failed to commit queue-message")
			}
		}
	}
}

// handle returns an error only when the message must stay uncommitted
func (w *Worker) handle(ctx context.Context, msg kafkago.Message) error {
	var req model.ExportRequest
	decodeErr := json.Unmarshal(msg.Value, &req)

	if req.JobID == "" {
		req.JobID = string(msg.Key)
	}
	if req.JobID == "" {
		req.JobID = helpers.CreateUUID()
	}

	logger := zlog.Logger.With().Str("job_id", req.JobID).Logger()
	ctx = mwlogger.WithLogger(ctx, logger)

	if decodeErr != nil {
		logger.Warn().Err(decodeErr).Msg("Malformed export request")
		return w.publish(ctx, rejected(req.JobID, fmt.Errorf("%w: %v", model.ErrIncorrectQuery, decodeErr)))
	}

	rep, err := w.service.RunExport(ctx, req)
	switch {
	case err == nil:
	case isRejection(err):
		logger.Warn().Err(err).Msg("Export request rejected")
		rep = rejected(req.JobID, err)
	default:
		return fmt.Errorf("failed to run export %q: %w", req.JobID, err)
	}

	if ctx.Err() != nil {
		return fmt.Errorf("worker is stopping, job %q will be redelivered: %w", req.JobID, ctx.Err())
	}

	return w.publish(ctx, rep)
}

func (w *Worker) publish(ctx context.Context, rep model.ExportReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := w.publisher.SendWithRetry(ctx, retryStrategy, []byte(rep.JobID), data); err != nil {
		return fmt.Errorf("failed to publish report %q: %w", rep.JobID, err)
	}
	return nil
}

func isRejection(err error) bool {
	return errors.Is(err, model.ErrInvalidConfig) ||
		errors.Is(err, model.ErrInvalidOutputPath) ||
		errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrIncorrectQuery)
}

func rejected(id string, err error) model.ExportReport {
	return model.ExportReport{
		JobID:    id,
		State:    model.StateRejected,
		Outcomes: []model.ExportOutcome{},
		Error:    err.Error(),
	}
}
