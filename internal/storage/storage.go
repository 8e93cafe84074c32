// Package storage connects the optional object storage that receives exported images
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

const (
	SinkNone  = "none"
	SinkMinio = "minio"
)

// NewResultSink keeps connecting to MinIO until it succeeds or ctx is done
func NewResultSink(ctx context.Context, cfg *config.Config, delay time.Duration) (*miniostorage.MinioResultStorage, error) {
	for {
		zlog.Logger.Info().Msg("Connecting to result storage...")
		client, err := miniostorage.NewMinioClient(ctx, miniostorage.OptionsFromConfig(cfg))
		if err == nil {
			zlog.Logger.Info().Msg("Successfully connected result storage!")
			return client, nil
		}

		zlog.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("Failed to init connection to result storage")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("result storage is unreachable: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}
