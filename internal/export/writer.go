package export

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/UnendingLoop/PhotoWatermark/internal/imageproc"
	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

// writeImage encodes into a temp file next to path and renames it into place,
// so a failed item never leaves a half-written output
func writeImage(path string, img image.Image, f model.Format, quality int) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wm-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = imageproc.Encode(w, img, f, quality); err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("write %q: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %q: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %q: %w", path, err)
	}
	return nil
}
