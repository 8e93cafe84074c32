package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

const maxNameAttempts = 10000

// namer builds output paths and keeps the names of one job unique
type namer struct {
	dir       string
	overwrite bool
	base      []string
	sources   map[string]struct{}

	mu       sync.Mutex
	reserved map[string]struct{}
}

func newNamer(sources []model.ImageAsset, out model.OutputSpec) (*namer, error) {
	dir, err := filepath.Abs(filepath.Clean(out.Directory))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", model.ErrInvalidOutputPath, out.Directory, err)
	}

	n := &namer{
		dir:       dir,
		overwrite: out.OverwriteExisting,
		base:      make([]string, len(sources)),
		sources:   make(map[string]struct{}, len(sources)),
		reserved:  make(map[string]struct{}, len(sources)),
	}

	abs := make([]string, len(sources))
	for i, s := range sources {
		if s.SourcePath == "" {
			continue
		}
		p, err := filepath.Abs(s.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("%w: source %q: %v", model.ErrInvalidOutputPath, s.SourcePath, err)
		}
		abs[i] = p
		n.sources[p] = struct{}{}

		if out.Naming.Kind == model.NamingOriginal && filepath.Dir(p) == dir {
			return nil, fmt.Errorf("%w: original names need an output directory different from the source directory %q", model.ErrInvalidOutputPath, dir)
		}
	}

	for i := range sources {
		n.base[i] = filepath.Join(dir, OutputName(sources[i].SourcePath, i, out.Naming, out.Format))
		if _, ok := n.sources[n.base[i]]; ok {
			return nil, fmt.Errorf("%w: output %q would overwrite a source image", model.ErrInvalidOutputPath, n.base[i])
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", model.ErrInvalidOutputPath, dir, err)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", model.ErrInvalidOutputPath, dir)
	}

	return n, nil
}

// OutputName is the file name an export gives to a source, before collision handling.
// Sources without a path are named image_<n>.
func OutputName(source string, index int, rule model.NamingRule, f model.Format) string {
	stem := fmt.Sprintf("image_%d", index+1)
	if source != "" {
		base := filepath.Base(source)
		stem = strings.TrimSuffix(base, filepath.Ext(base))
	}

	switch rule.Kind {
	case model.NamingPrefix:
		stem = rule.Prefix + stem
	case model.NamingSuffix:
		stem += rule.Suffix
	}
	return stem + model.GetFileExt[f]
}

// reserve picks the path for item i. Without overwrite an existing file
// moves the name to "name (1).ext", "name (2).ext" and so on.
func (n *namer) reserve(i int) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	base := n.base[i]
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for k := 0; k < maxNameAttempts; k++ {
		candidate := base
		if k > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, k, ext)
		}
		if n.taken(candidate) {
			continue
		}
		n.reserved[candidate] = struct{}{}
		return candidate, nil
	}
	return "", fmt.Errorf("%w: no free name for %q", model.ErrInvalidOutputPath, base)
}

func (n *namer) taken(path string) bool {
	if _, ok := n.reserved[path]; ok {
		return true
	}
	if _, ok := n.sources[path]; ok {
		return true
	}
	if n.overwrite {
		return false
	}
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func (n *namer) release(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.reserved, path)
}
