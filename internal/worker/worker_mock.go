package worker

import (
	"context"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
)

type mockWorkerService struct {
	runExportFn func(ctx context.Context, req model.ExportRequest) (model.ExportReport, error)
}

func (m *mockWorkerService) RunExport(ctx context.Context, req model.ExportRequest) (model.ExportReport, error) {
	return m.runExportFn(ctx, req)
}

//----------------------------------

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}

type mockCommitter struct {
	commitFn func(ctx context.Context, msg kafkago.Message) error
}

func (m *mockCommitter) Commit(ctx context.Context, msg kafkago.Message) error {
	return m.commitFn(ctx, msg)
}
