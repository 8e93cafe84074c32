package imageproc

import (
	"os"
	"strings"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/rwcarlsen/goexif/exif"
)

const DateLayout = "2006-01-02"

// CaptureDate reads the EXIF capture time of a photo and falls back to the file modification time
func CaptureDate(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	if x, err := exif.Decode(f); err == nil {
		if tm, err := x.DateTime(); err == nil {
			return tm, nil
		}
	}

	st, err := f.Stat()
	if err != nil {
		return time.Time{}, err
	}
	return st.ModTime(), nil
}

// ExpandDate replaces the date token of a text watermark with date.
// Configs without the token are returned unchanged.
func ExpandDate(cfg model.WatermarkConfig, date time.Time) model.WatermarkConfig {
	if cfg.Content.Kind != model.ContentText || cfg.Content.Text == nil ||
		!strings.Contains(cfg.Content.Text.Value, model.DateToken) {
		return cfg
	}

	out := cfg.Clone()
	out.Content.Text.Value = strings.ReplaceAll(out.Content.Text.Value, model.DateToken, date.Format(DateLayout))
	return out
}
