// Package appconfig reads the settings shared by the api and the worker from env and .env
package appconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/config"
)

type Settings struct {
	Port     string
	GinMode  string
	LogLevel string

	TemplateBackend string
	TemplateDir     string

	ExportWorkers  int
	ExportSink     string
	PreviewMaxSide int
	PreviewRPS     float64
	FontCacheSize  int

	KafkaBroker  string
	JobsTopic    string
	ReportsTopic string
	GroupID      string
}

// Load - инициализировать конфиг/ считать энвы, .env is optional
func Load(envFile string) (*config.Config, Settings, error) {
	appConfig := config.New()
	appConfig.EnableEnv("")
	if envFile != "" {
		if err := appConfig.LoadEnvFiles(envFile); err != nil {
			return nil, Settings{}, fmt.Errorf("failed to load envs: %w", err)
		}
	}

	s, err := FromConfig(appConfig)
	if err != nil {
		return nil, Settings{}, err
	}
	return appConfig, s, nil
}

func FromConfig(c *config.Config) (Settings, error) {
	s := Settings{
		Port:            withDefault(c.GetString("APP_PORT"), "8080"),
		GinMode:         withDefault(c.GetString("GIN_MODE"), "release"),
		LogLevel:        withDefault(c.GetString("LOG_LEVEL"), "info"),
		TemplateBackend: strings.ToLower(withDefault(c.GetString("TEMPLATE_BACKEND"), "file")),
		TemplateDir:     withDefault(c.GetString("TEMPLATE_DIR"), "./templates"),
		ExportSink:      strings.ToLower(withDefault(c.GetString("EXPORT_SINK"), "none")),
		KafkaBroker:     c.GetString("KAFKA_BROKER"),
		JobsTopic:       withDefault(c.GetString("KAFKA_JOBS_TOPIC"), "watermark-jobs"),
		ReportsTopic:    withDefault(c.GetString("KAFKA_REPORTS_TOPIC"), "watermark-reports"),
		GroupID:         withDefault(c.GetString("KAFKA_GROUPID"), "watermark-exporter"),
	}

	var err error
	if s.ExportWorkers, err = intValue(c, "EXPORT_WORKERS", 0); err != nil {
		return Settings{}, err
	}
	if s.PreviewMaxSide, err = intValue(c, "PREVIEW_MAX_SIDE", 1024); err != nil {
		return Settings{}, err
	}
	if s.FontCacheSize, err = intValue(c, "FONT_CACHE_SIZE", 32); err != nil {
		return Settings{}, err
	}
	if raw := c.GetString("PREVIEW_RPS"); raw != "" {
		if s.PreviewRPS, err = strconv.ParseFloat(raw, 64); err != nil {
			return Settings{}, fmt.Errorf("PREVIEW_RPS: %w", err)
		}
	} else {
		s.PreviewRPS = 5
	}

	switch s.TemplateBackend {
	case "file", "postgres":
	default:
		return Settings{}, fmt.Errorf("TEMPLATE_BACKEND must be file or postgres, got %q", s.TemplateBackend)
	}
	switch s.ExportSink {
	case "none", "minio":
	default:
		return Settings{}, fmt.Errorf("EXPORT_SINK must be none or minio, got %q", s.ExportSink)
	}

	return s, nil
}

func intValue(c *config.Config, key string, def int) (int, error) {
	raw := c.GetString(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return v, nil
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
