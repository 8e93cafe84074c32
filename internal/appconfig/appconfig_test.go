package appconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "TEMPLATE_BACKEND", "EXPORT_WORKERS", "EXPORT_SINK", "PREVIEW_RPS", "PREVIEW_MAX_SIDE"} {
		t.Setenv(k, "")
	}

	_, s, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "8080", s.Port)
	require.Equal(t, "file", s.TemplateBackend)
	require.Equal(t, "none", s.ExportSink)
	require.Equal(t, 0, s.ExportWorkers)
	require.Equal(t, 1024, s.PreviewMaxSide)
	require.Equal(t, 5.0, s.PreviewRPS)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("TEMPLATE_BACKEND", "Postgres")
	t.Setenv("EXPORT_WORKERS", "3")
	t.Setenv("EXPORT_SINK", "minio")
	t.Setenv("PREVIEW_RPS", "0.5")

	_, s, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "9000", s.Port)
	require.Equal(t, "postgres", s.TemplateBackend)
	require.Equal(t, 3, s.ExportWorkers)
	require.Equal(t, "minio", s.ExportSink)
	require.Equal(t, 0.5, s.PreviewRPS)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"workers not a number", "EXPORT_WORKERS", "many"},
		{"negative side", "PREVIEW_MAX_SIDE", "-5"},
		{"rps not a number", "PREVIEW_RPS", "fast"},
		{"unknown backend", "TEMPLATE_BACKEND", "redis"},
		{"unknown sink", "EXPORT_SINK", "s3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, _, err := Load("")
			require.Error(t, err)
		})
	}
}
