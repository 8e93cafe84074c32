package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const maxTemplateName = 128

type TemplateRecord struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Config      WatermarkConfig `json:"config"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// ValidateTemplateName rejects names that could escape the template directory
func ValidateTemplateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: template name is empty", ErrInvalidConfig)
	case len(name) > maxTemplateName:
		return fmt.Errorf("%w: template name is longer than %d", ErrInvalidConfig, maxTemplateName)
	case strings.ContainsAny(name, `/\`), strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: template name %q contains forbidden characters", ErrInvalidConfig, name)
	}
	return nil
}

// Value stores a config as JSONB
func (c WatermarkConfig) Value() (driver.Value, error) {
	res, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal WatermarkConfig to JSONB: %w", err)
	}
	return res, nil
}

func (c *WatermarkConfig) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("invalid type %T for WatermarkConfig", value)
	}

	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to WatermarkConfig: %w", err)
	}
	return nil
}
