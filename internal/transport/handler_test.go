package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-photo-sharpness/internal/config"
	apperrors "go-photo-sharpness/internal/errors"
	"go-photo-sharpness/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	lastClassify models.ClassifyRequest
	lastBatch    models.BatchClassifyRequest
	classify     func(models.ClassifyRequest) (*models.ClassificationResponse, error)
}

func (s *stubService) Classify(_ context.Context, req models.ClassifyRequest) (*models.ClassificationResponse, error) {
	s.lastClassify = req
	if s.classify != nil {
		return s.classify(req)
	}
	return &models.ClassificationResponse{
		URL:           req.URL,
		Verdict:       "Sharp",
		Bucket:        "Sharp",
		Score:         3.4,
		ResolvedIndex: 7,
		NextCursor:    7,
	}, nil
}

func (s *stubService) ClassifyBatch(_ context.Context, req models.BatchClassifyRequest) (*models.BatchClassificationResponse, error) {
	s.lastBatch = req
	resp := &models.BatchClassificationResponse{NextCursor: 1}
	for _, p := range req.Photos {
		resp.Items = append(resp.Items, models.BatchItemResponse{URL: p.URL, Result: &models.ClassificationResponse{URL: p.URL}})
		resp.Succeeded++
	}
	return resp, nil
}

func (s *stubService) GetResult(_ context.Context, id string) (*models.ClassificationResponse, error) {
	if id == "known" {
		return &models.ClassificationResponse{ID: id, Verdict: "Unsharp"}, nil
	}
	return nil, apperrors.NewNotFoundError("result not found", nil)
}

func (s *stubService) ModelInfo() models.ModelResponse {
	return models.ModelResponse{
		FeatureNames: []string{"x0"},
		Coefficients: []float64{-3.886},
		Intercept:    3.310097,
		Thresholds:   models.ThresholdsResponse{Low: 2.5, High: 3},
		Degraded:     true,
	}
}

func (s *stubService) ValidateLocation(string) error { return nil }

type stubMetrics struct{}

func (stubMetrics) GetMetrics() models.ClassificationMetrics {
	return models.ClassificationMetrics{Total: 3, Succeeded: 2, Verdicts: map[string]int64{"Sharp": 2}}
}

func newTestHandler(svc *stubService) http.Handler {
	gin.SetMode(gin.TestMode)
	return NewHandler(svc, stubMetrics{}, &config.Config{
		RequestTimeout:     time.Second,
		MaxRequestBodySize: 1024,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := do(t, newTestHandler(&stubService{}), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "available", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.True(t, resp.Degraded)
	assert.Equal(t, int64(3), resp.Metrics.Total)
	assert.Equal(t, int64(2), resp.Metrics.Verdicts["Sharp"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	newTestHandler(&stubService{}).ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestModelInfo(t *testing.T) {
	w := do(t, newTestHandler(&stubService{}), http.MethodGet, "/api/v1/model", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ModelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"x0"}, resp.FeatureNames)
	assert.Equal(t, 3.310097, resp.Intercept)
	assert.Equal(t, 2.5, resp.Thresholds.Low)
	assert.True(t, resp.Degraded)
}

func TestClassify(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(svc)

	w := do(t, h, http.MethodPost, "/api/v1/classify",
		`{"url":"https://example.com/DSC_0001.jpg","af_point_index":0,"last_good_index":7,"camera_model":"NIKON D610"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ClassificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Sharp", resp.Verdict)
	assert.Equal(t, 7, resp.NextCursor)

	assert.Equal(t, "https://example.com/DSC_0001.jpg", svc.lastClassify.URL)
	require.NotNil(t, svc.lastClassify.AFPointIndex)
	assert.Equal(t, 0, *svc.lastClassify.AFPointIndex)
	require.NotNil(t, svc.lastClassify.LastGoodIndex)
	assert.Equal(t, 7, *svc.lastClassify.LastGoodIndex)
	require.NotNil(t, svc.lastClassify.CameraModel)
	assert.Equal(t, "NIKON D610", *svc.lastClassify.CameraModel)
	assert.Nil(t, svc.lastClassify.FocalLength)
}

func TestClassify_BadRequests(t *testing.T) {
	h := newTestHandler(&stubService{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"url":`, http.StatusBadRequest},
		{"missing url", `{}`, http.StatusBadRequest},
		{"negative af index", `{"url":"a.jpg","af_point_index":-1}`, http.StatusBadRequest},
		{"body too large", `{"url":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/classify", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusText(tt.status), resp.Error)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestClassify_ProcessingErrorCarriesPartial(t *testing.T) {
	svc := &stubService{
		classify: func(req models.ClassifyRequest) (*models.ClassificationResponse, error) {
			partial := &models.ClassificationResponse{
				URL:           req.URL,
				Features:      map[string]float64{"wv": 0.12},
				ResolvedIndex: 39,
				NextCursor:    39,
			}
			return partial, apperrors.NewProcessingError("af point tile outside the photo", nil)
		},
	}

	w := do(t, newTestHandler(svc), http.MethodPost, "/api/v1/classify", `{"url":"edge.jpg"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(apperrors.ErrorTypeProcessing), resp.Type)
	require.NotNil(t, resp.Partial)
	assert.Equal(t, 0.12, resp.Partial.Features["wv"])
	assert.Equal(t, 39, resp.Partial.NextCursor)
}

func TestClassifyBatch(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(svc)

	w := do(t, h, http.MethodPost, "/api/v1/classify/batch",
		`{"photos":[{"url":"a.jpg"},{"url":"b.jpg","af_point_index":3}],"initial_index":5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.BatchClassificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "b.jpg", resp.Items[1].URL)
	assert.Equal(t, 2, resp.Succeeded)

	require.NotNil(t, svc.lastBatch.InitialIndex)
	assert.Equal(t, 5, *svc.lastBatch.InitialIndex)
	assert.Equal(t, 3, *svc.lastBatch.Photos[1].AFPointIndex)

	w = do(t, h, http.MethodPost, "/api/v1/classify/batch", `{"photos":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/classify/batch", `{"photos":[{"url":""}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetResult(t *testing.T) {
	h := newTestHandler(&stubService{})

	w := do(t, h, http.MethodGet, "/api/v1/results/known", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ClassificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Unsharp", resp.Verdict)

	w = do(t, h, http.MethodGet, "/api/v1/results/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetermineStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", apperrors.NewTimeoutError("slow", nil), http.StatusGatewayTimeout},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"cancelled", context.Canceled, apperrors.StatusClientClosedRequest},
		{"cancelled app error", apperrors.NewCanceledError("gone", context.Canceled), apperrors.StatusClientClosedRequest},
		{"other", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineStatusCode(tt.err))
		})
	}
}
