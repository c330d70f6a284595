package container

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-photo-sharpness/internal/config"
	"go-photo-sharpness/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               8080,
		RequestTimeout:     5 * time.Second,
		ImageFetchTimeout:  5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		ThresholdLow:       2.5,
		ThresholdHigh:      3.0,
		GradientMode:       "euclidean",
		InitialAFIndex:     1,
		Workers:            2,
		MaxBatchSize:       8,
		StorageBackend:     config.StorageLocal,
		LocalRoot:          t.TempDir(),
		ResultsDB:          filepath.Join(t.TempDir(), "results.db"),
	}
}

// writePhoto stores a gray PNG just large enough for the tile of AF
// point 38 of the built-in calibration, centred at (1845, 1674)
func writePhoto(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 2000, 1820))
	for y := 0; y < 1820; y++ {
		for x := 0; x < 2000; x++ {
			img.Pix[y*img.Stride+x] = uint8((x * 7) ^ y)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o600))
}

func TestNewContainer_EndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := localConfig(t)
	writePhoto(t, cfg.LocalRoot, "DSC_0001.png")

	c, err := NewContainer(cfg)
	require.NoError(t, err)
	defer c.Close()

	body := `{"url":"DSC_0001.png","af_point_index":38}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/classify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ClassificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 38, resp.ResolvedIndex)
	assert.True(t, resp.Degraded)
	assert.Contains(t, []string{"Sharp", "Questionable", "Unsharp"}, resp.Verdict)
	require.NotEmpty(t, resp.ID)

	w = httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/results/"+resp.ID, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, c.Close())
	assert.Equal(t, int64(1), c.metrics.GetMetrics().Succeeded)
}

func TestNewContainer_Errors(t *testing.T) {
	_, err := NewContainer(nil)
	assert.Error(t, err)

	cfg := localConfig(t)
	cfg.LocalRoot = filepath.Join(cfg.LocalRoot, "missing")
	_, err = NewContainer(cfg)
	assert.Error(t, err)

	cfg = localConfig(t)
	cfg.ModelPath = filepath.Join(t.TempDir(), "absent.json")
	_, err = NewContainer(cfg)
	assert.Error(t, err)
}
