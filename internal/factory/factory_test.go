package factory

import (
	"os"
	"path/filepath"
	"testing"

	"go-photo-sharpness/internal/config"
	"go-photo-sharpness/internal/model"
	"go-photo-sharpness/internal/storage"
	"go-photo-sharpness/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		ThresholdLow:   2.5,
		ThresholdHigh:  3.0,
		GradientMode:   "euclidean",
		Workers:        1,
		StorageBackend: config.StorageHTTP,
	}
}

func TestCreateStorage(t *testing.T) {
	cfg := testConfig()
	cfg.LocalRoot = t.TempDir()
	f := NewStorageFactory(cfg)

	fetcher, err := f.CreateStorage(HTTPStorage)
	require.NoError(t, err)
	assert.IsType(t, &storage.HTTPPhotoFetcher{}, fetcher)

	fetcher, err = f.CreateStorage(LocalStorage)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalPhotoFetcher{}, fetcher)

	_, err = f.CreateStorage("ftp")
	assert.Error(t, err)

	cfg.LocalRoot = filepath.Join(cfg.LocalRoot, "missing")
	fetcher, err = f.CreateStorage(LocalStorage)
	assert.Error(t, err)
	assert.Nil(t, fetcher)
}

func TestCreateValidator(t *testing.T) {
	f := NewStorageFactory(testConfig())

	assert.IsType(t, &validation.URLValidator{}, f.CreateValidator(HTTPStorage))
	assert.IsType(t, &validation.PathValidator{}, f.CreateValidator(LocalStorage))
	assert.NoError(t, f.CreateValidator(AzureStorage).Validate("https://acct.blob.core.windows.net/photos/a.jpg"))
	assert.Error(t, f.CreateValidator(AzureStorage).Validate("https://example.com/a.jpg"))
}

func TestCreateResultRepository(t *testing.T) {
	cfg := testConfig()
	f := NewStorageFactory(cfg)

	repo, err := f.CreateResultRepository()
	require.NoError(t, err)
	assert.Nil(t, repo)

	cfg.ResultsDB = filepath.Join(t.TempDir(), "results.db")
	repo, err = f.CreateResultRepository()
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.NoError(t, repo.Close())
}

func TestCreateModel(t *testing.T) {
	cfg := testConfig()
	f := NewClassifierFactory(cfg)

	m, err := f.CreateModel()
	require.NoError(t, err)
	assert.True(t, m.Degraded())

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"featureNames":["1","x0"],"coefficients":[3,2],"intercept":0}`), 0o600))
	cfg.ModelPath = path

	m, err = f.CreateModel()
	require.NoError(t, err)
	assert.False(t, m.Degraded())
	assert.Len(t, m.Terms(), 2)

	require.NoError(t, os.WriteFile(path, []byte(`{"featureNames":["y0"],"coefficients":[1],"intercept":0}`), 0o600))
	_, err = f.CreateModel()
	assert.ErrorIs(t, err, model.ErrMalformedTerm)
}

func TestCreateClassifier(t *testing.T) {
	cfg := testConfig()
	extractor, err := NewExtractorFactory(cfg, nil).CreateExtractor()
	require.NoError(t, err)
	defer extractor.Close()

	clf, err := NewClassifierFactory(cfg).CreateClassifier(extractor)
	require.NoError(t, err)
	assert.Equal(t, 3.0, clf.Thresholds().High)

	cfg.ThresholdHigh = 2.0
	_, err = NewClassifierFactory(cfg).CreateClassifier(extractor)
	assert.Error(t, err)
}

func TestCreateExtractor(t *testing.T) {
	cfg := testConfig()

	cfg.GradientMode = "single_axis"
	extractor, err := NewExtractorFactory(cfg, nil).CreateExtractor()
	require.NoError(t, err)
	assert.NoError(t, extractor.Close())

	cfg.GradientMode = "sobel"
	_, err = NewExtractorFactory(cfg, nil).CreateExtractor()
	assert.Error(t, err)

	cfg.GradientMode = ""
	cfg.CameraModel = "Canon EOS R5"
	_, err = NewExtractorFactory(cfg, nil).CreateExtractor()
	assert.Error(t, err)
}
