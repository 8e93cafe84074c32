package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UnendingLoop/PhotoWatermark/internal/model"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"
)

func wrap(fn func(*ginext.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		fn((*ginext.Context)(c))
	}
}

func newRouter(h *WatermarkHandler) *gin.Engine {
	r := gin.New()
	r.GET("/ping", wrap(h.SimplePinger))
	r.POST("/preview", wrap(h.Preview))
	r.POST("/exports", wrap(h.StartExport))
	r.GET("/exports/:id", wrap(h.ExportStatus))
	r.GET("/exports/:id/report", wrap(h.ExportReport))
	r.DELETE("/exports/:id", wrap(h.CancelExport))
	r.GET("/templates", wrap(h.ListTemplates))
	r.GET("/templates/:name", wrap(h.LoadTemplate))
	r.PUT("/templates/:name", wrap(h.SaveTemplate))
	r.DELETE("/templates/:name", wrap(h.DeleteTemplate))
	return r
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.White), imaging.PNG))
	return buf.Bytes()
}

func newPreviewRequest(t *testing.T, fields map[string]string, img []byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if img != nil {
		fw, err := w.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/preview", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

const validConfig = `{"content":{"kind":"text","text":{"value":"hi","size_px":12,"fill":{"r":0,"g":0,"b":0,"a":255}}},"placement":{"anchor":"center"}}`

func TestWatermarkHandler_Ping(t *testing.T) {
	r := newRouter(NewWatermarkHandler(nil, 0))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "pong", body["message"])
}

func TestWatermarkHandler_Preview(t *testing.T) {
	okSvc := &mockWatermarkService{
		renderPreviewFn: func(ctx context.Context, base image.Image, cfg model.WatermarkConfig, maxSide int) (image.Image, error) {
			require.Equal(t, "hi", cfg.Content.Text.Value)
			return imaging.Resize(base, 8, 4, imaging.Box), nil
		},
	}

	tests := []struct {
		name       string
		req        *http.Request
		svc        *mockWatermarkService
		wantStatus int
	}{
		{
			name:       "success",
			req:        newPreviewRequest(t, map[string]string{"config": validConfig, "max_side": "8"}, pngBytes(t, 16, 8)),
			svc:        okSvc,
			wantStatus: 200,
		},
		{
			name:       "missing image",
			req:        newPreviewRequest(t, map[string]string{"config": validConfig}, nil),
			svc:        &mockWatermarkService{},
			wantStatus: 400,
		},
		{
			name:       "broken config",
			req:        newPreviewRequest(t, map[string]string{"config": "{"}, pngBytes(t, 4, 4)),
			svc:        &mockWatermarkService{},
			wantStatus: 400,
		},
		{
			name:       "bad max side",
			req:        newPreviewRequest(t, map[string]string{"config": validConfig, "max_side": "-1"}, pngBytes(t, 4, 4)),
			svc:        &mockWatermarkService{},
			wantStatus: 400,
		},
		{
			name:       "not an image",
			req:        newPreviewRequest(t, map[string]string{"config": validConfig}, []byte("text")),
			svc:        &mockWatermarkService{},
			wantStatus: 400,
		},
		{
			name: "render failure",
			req:  newPreviewRequest(t, map[string]string{"config": validConfig}, pngBytes(t, 4, 4)),
			svc: &mockWatermarkService{
				renderPreviewFn: func(ctx context.Context, base image.Image, cfg model.WatermarkConfig, maxSide int) (image.Image, error) {
					return nil, model.ErrRender
				},
			},
			wantStatus: 422,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(NewWatermarkHandler(tt.svc, 0))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, tt.req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == 200 {
				require.Equal(t, "image/png", w.Header().Get("Content-Type"))
				img, err := imaging.Decode(w.Body)
				require.NoError(t, err)
				require.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
			}
		})
	}
}

func TestWatermarkHandler_Preview_RateLimited(t *testing.T) {
	svc := &mockWatermarkService{
		renderPreviewFn: func(ctx context.Context, base image.Image, cfg model.WatermarkConfig, maxSide int) (image.Image, error) {
			return base, nil
		},
	}
	r := newRouter(NewWatermarkHandler(svc, 0.001))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newPreviewRequest(t, map[string]string{"config": validConfig}, pngBytes(t, 4, 4)))
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{200, 429}, codes)
}

func TestWatermarkHandler_StartExport(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *mockWatermarkService
		wantStatus int
	}{
		{
			name: "success",
			body: `{"sources":["/a.png"],"template":"logo","output":{"directory":"/out","naming":{"kind":"prefix"},"format":"png"}}`,
			svc: &mockWatermarkService{
				buildJobFn: func(ctx context.Context, req model.ExportRequest) (model.ExportJob, error) {
					require.Equal(t, "logo", req.Template)
					return req.Job(model.WatermarkConfig{}), nil
				},
				startBatchExportFn: func(ctx context.Context, job model.ExportJob) (string, error) {
					require.Len(t, job.Sources, 1)
					return "job-1", nil
				},
			},
			wantStatus: 202,
		},
		{
			name:       "broken json",
			body:       `{"sources":`,
			svc:        &mockWatermarkService{},
			wantStatus: 400,
		},
		{
			name: "unknown template",
			body: `{"sources":["/a.png"],"template":"nope"}`,
			svc: &mockWatermarkService{
				buildJobFn: func(ctx context.Context, req model.ExportRequest) (model.ExportJob, error) {
					return model.ExportJob{}, model.ErrNotFound
				},
			},
			wantStatus: 404,
		},
		{
			name: "invalid output",
			body: `{"sources":["/a.png"],"template":"logo"}`,
			svc: &mockWatermarkService{
				buildJobFn: func(ctx context.Context, req model.ExportRequest) (model.ExportJob, error) {
					return req.Job(model.WatermarkConfig{}), nil
				},
				startBatchExportFn: func(ctx context.Context, job model.ExportJob) (string, error) {
					return "", fmt.Errorf("%w: would overwrite", model.ErrInvalidOutputPath)
				},
			},
			wantStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(NewWatermarkHandler(tt.svc, 0))
			req := httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == 202 {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				require.Equal(t, "job-1", body["id"])
			}
		})
	}
}

func TestWatermarkHandler_ExportLifecycle(t *testing.T) {
	svc := &mockWatermarkService{
		exportStatusFn: func(ctx context.Context, id string) (model.ExportStatus, error) {
			if id != "job-1" {
				return model.ExportStatus{}, model.ErrJobNotFound
			}
			return model.ExportStatus{JobID: id, State: model.StateRunning, Total: 3, Done: 1}, nil
		},
		exportReportFn: func(ctx context.Context, id string) (model.ExportReport, error) {
			switch id {
			case "job-1":
				return model.ExportReport{}, model.ErrJobRunning
			case "job-2":
				return model.ExportReport{JobID: id, State: model.StateCompleted}, nil
			}
			return model.ExportReport{}, model.ErrJobNotFound
		},
		cancelExportFn: func(ctx context.Context, id string) error {
			if id != "job-1" {
				return model.ErrJobNotFound
			}
			return nil
		},
	}
	r := newRouter(NewWatermarkHandler(svc, 0))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"status", http.MethodGet, "/exports/job-1", 200},
		{"status unknown", http.MethodGet, "/exports/job-9", 404},
		{"report running", http.MethodGet, "/exports/job-1/report", 409},
		{"report done", http.MethodGet, "/exports/job-2/report", 200},
		{"report unknown", http.MethodGet, "/exports/job-9/report", 404},
		{"cancel", http.MethodDelete, "/exports/job-1", 202},
		{"cancel unknown", http.MethodDelete, "/exports/job-9", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestWatermarkHandler_Templates(t *testing.T) {
	stored := map[string]model.TemplateRecord{}
	svc := &mockWatermarkService{
		saveTemplateFn: func(ctx context.Context, rec *model.TemplateRecord) error {
			if rec.Config.Content.Kind == "" {
				return model.ErrInvalidConfig
			}
			stored[rec.Name] = *rec
			return nil
		},
		loadTemplateFn: func(ctx context.Context, name string) (*model.TemplateRecord, error) {
			rec, ok := stored[name]
			if !ok {
				return nil, model.ErrNotFound
			}
			return &rec, nil
		},
		listTemplatesFn: func(ctx context.Context) ([]string, error) {
			return []string{"logo"}, nil
		},
		deleteTemplateFn: func(ctx context.Context, name string) error {
			if _, ok := stored[name]; !ok {
				return model.ErrNotFound
			}
			delete(stored, name)
			return nil
		},
	}
	r := newRouter(NewWatermarkHandler(svc, 0))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"save", http.MethodPut, "/templates/logo", `{"name":"ignored","config":` + validConfig + `}`, 200},
		{"save invalid", http.MethodPut, "/templates/bad", `{"config":{}}`, 400},
		{"save broken", http.MethodPut, "/templates/bad", `{`, 400},
		{"load", http.MethodGet, "/templates/logo", "", 200},
		{"load unknown", http.MethodGet, "/templates/nope", "", 404},
		{"list", http.MethodGet, "/templates", "", 200},
		{"delete", http.MethodDelete, "/templates/logo", "", 204},
		{"delete again", http.MethodDelete, "/templates/logo", "", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestWatermarkHandler_Templates_StorageError(t *testing.T) {
	svc := &mockWatermarkService{
		listTemplatesFn: func(ctx context.Context) ([]string, error) {
			return nil, fmt.Errorf("%w: disk on fire", model.ErrPersistence)
		},
	}
	r := newRouter(NewWatermarkHandler(svc, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/templates", nil))
	require.Equal(t, 500, w.Code)
	require.NotContains(t, w.Body.String(), "disk on fire")
}

func TestErrorCodeDefiner(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrInvalidConfig, 400},
		{model.ErrInvalidOutputPath, 400},
		{model.ErrEmptySource, 400},
		{model.ErrUnsupportedFormat, 400},
		{model.ErrNotFound, 404},
		{model.ErrJobNotFound, 404},
		{model.ErrJobRunning, 409},
		{model.ErrRender, 422},
		{model.ErrRateLimited, 429},
		{model.ErrPersistence, 500},
		{model.ErrCommon500, 500},
		{errors.New("anything else"), 500},
		{fmt.Errorf("%w: wrapped", model.ErrNotFound), 404},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.Equal(t, tt.want, errorCodeDefiner(tt.err))
		})
	}
}
