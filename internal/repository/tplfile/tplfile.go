// Package tplfile keeps templates as JSON documents in a private directory
package tplfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

const ext = ".json"

// FileRepo writes every record to a temp file and renames it over the old one.
// Save and Delete are exclusive, Load and List run concurrently.
type FileRepo struct {
	dir string
	mu  sync.RWMutex
}

func New(dir string) (*FileRepo, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: template directory is empty", model.ErrPersistence)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return &FileRepo{dir: dir}, nil
}

func (r *FileRepo) path(name string) string {
	return filepath.Join(r.dir, url.PathEscape(name)+ext)
}

func (r *FileRepo) Save(_ context.Context, rec *model.TemplateRecord) error {
	if err := model.ValidateTemplateName(rec.Name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if rec.UpdatedAt == nil {
		rec.UpdatedAt = &now
	}
	// created_at survives overwrites
	if prev, err := r.read(rec.Name); err == nil && prev.CreatedAt != nil {
		rec.CreatedAt = prev.CreatedAt
	}
	if rec.CreatedAt == nil {
		rec.CreatedAt = rec.UpdatedAt
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal template %q: %v", model.ErrPersistence, rec.Name, err)
	}

	if err := r.writeAtomic(r.path(rec.Name), data); err != nil {
		return fmt.Errorf("%w: failed to write template %q: %v", model.ErrPersistence, rec.Name, err)
	}
	return nil
}

func (r *FileRepo) writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(r.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (r *FileRepo) Load(_ context.Context, name string) (*model.TemplateRecord, error) {
	if err := model.ValidateTemplateName(name); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(name)
}

func (r *FileRepo) read(name string) (*model.TemplateRecord, error) {
	data, err := os.ReadFile(r.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to read template %q: %v", model.ErrPersistence, name, err)
	}

	var rec model.TemplateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: template %q is corrupted: %v", model.ErrPersistence, name, err)
	}
	return &rec, nil
}

func (r *FileRepo) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list templates: %v", model.ErrPersistence, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		fn := e.Name()
		if e.IsDir() || strings.HasPrefix(fn, ".") || !strings.HasSuffix(fn, ext) {
			continue
		}
		name, err := url.PathUnescape(strings.TrimSuffix(fn, ext))
		if err != nil {
			continue
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

func (r *FileRepo) Delete(_ context.Context, name string) error {
	if err := model.ValidateTemplateName(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.ErrNotFound
		}
		return fmt.Errorf("%w: failed to delete template %q: %v", model.ErrPersistence, name, err)
	}
	return nil
}
