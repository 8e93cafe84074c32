package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
)

// decodeTemplate accepts a full record or a bare watermark config
func decodeTemplate(data []byte) (*model.TemplateRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: template file is empty", model.ErrInvalidConfig)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: template is not a JSON object: %v", model.ErrInvalidConfig, err)
	}

	rec := &model.TemplateRecord{}
	if _, ok := probe["config"]; ok {
		if err := json.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
		}
	} else if err := json.Unmarshal(data, &rec.Config); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}

	// таймстампы ставит хранилище
	rec.CreatedAt, rec.UpdatedAt = nil, nil
	rec.Name = strings.TrimSpace(rec.Name)
	return rec, nil
}

func templateNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
