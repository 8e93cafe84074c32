package transport

import (
	"errors"
	"io"
	"math"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/time/rate"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500),
		errors.Is(err, model.ErrPersistence):
		return 500
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrJobNotFound):
		return 404
	case errors.Is(err, model.ErrJobRunning):
		return 409
	case errors.Is(err, model.ErrRender):
		return 422
	case errors.Is(err, model.ErrRateLimited):
		return 429
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrInvalidConfig),
		errors.Is(err, model.ErrInvalidOutputPath),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrUnsupportedFormat):
		return 400
	default:
		return 500
	}
}

// errorMessage hides the details of internal failures from clients
func errorMessage(err error) string {
	if errorCodeDefiner(err) == 500 {
		return model.ErrCommon500.Error()
	}
	return err.Error()
}

func newPreviewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Handler failed to close fileflow")
	}
}
