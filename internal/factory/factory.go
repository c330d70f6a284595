package factory

import (
	"fmt"

	"go-photo-sharpness/internal/afpoint"
	"go-photo-sharpness/internal/analyzer"
	"go-photo-sharpness/internal/classifier"
	"go-photo-sharpness/internal/config"
	"go-photo-sharpness/internal/logger"
	"go-photo-sharpness/internal/model"
	"go-photo-sharpness/internal/repository"
	"go-photo-sharpness/internal/storage"
	"go-photo-sharpness/pkg/validation"

	"github.com/sirupsen/logrus"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based photo fetching
	HTTPStorage StorageType = config.StorageHTTP
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = config.StorageAzure
	// LocalStorage for local file system
	LocalStorage StorageType = config.StorageLocal
)

// ExtractorFactory creates feature extractors
type ExtractorFactory interface {
	CreateExtractor() (analyzer.FeatureExtractor, error)
}

// ClassifierFactory creates the model and the classifier around it
type ClassifierFactory interface {
	CreateModel() (*model.Model, error)
	CreateClassifier(extractor analyzer.FeatureExtractor) (*classifier.Classifier, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.PhotoFetcher, error)
	CreateValidator(storageType StorageType) validation.LocationValidator
	CreateResultRepository() (repository.ResultRepository, error)
}

// extractorFactory implements ExtractorFactory
type extractorFactory struct {
	cfg      *config.Config
	registry *afpoint.Registry
}

// NewExtractorFactory creates a new extractor factory over a calibration
// registry. A nil registry uses the built-in calibrations.
func NewExtractorFactory(cfg *config.Config, registry *afpoint.Registry) ExtractorFactory {
	if registry == nil {
		registry = afpoint.DefaultRegistry()
	}
	return &extractorFactory{cfg: cfg, registry: registry}
}

// CreateExtractor creates an extractor from the configured gradient mode,
// camera model and worker count
func (f *extractorFactory) CreateExtractor() (analyzer.FeatureExtractor, error) {
	mode, err := analyzer.ParseGradientMode(f.cfg.GradientMode)
	if err != nil {
		return nil, err
	}

	options := analyzer.DefaultOptions().
		WithGradientMode(mode).
		WithCameraModel(f.cfg.CameraModel).
		WithWorkers(f.cfg.Workers)

	return analyzer.NewFeatureExtractor(f.registry, options)
}

// classifierFactory implements ClassifierFactory
type classifierFactory struct {
	cfg *config.Config
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config) ClassifierFactory {
	return &classifierFactory{cfg: cfg}
}

// CreateModel loads the model artifact. Without a configured path the
// degraded fallback model is used.
func (f *classifierFactory) CreateModel() (*model.Model, error) {
	if f.cfg.ModelPath == "" {
		logger.Warn("MODEL_PATH not set, using the degraded fallback model")
		return model.Fallback(), nil
	}

	m, err := model.Load(f.cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", f.cfg.ModelPath, err)
	}
	logger.WithFields(logrus.Fields{
		"path":  f.cfg.ModelPath,
		"terms": len(m.Terms()),
	}).Info("Model loaded")
	return m, nil
}

// CreateClassifier creates a classifier from the model and thresholds
func (f *classifierFactory) CreateClassifier(extractor analyzer.FeatureExtractor) (*classifier.Classifier, error) {
	m, err := f.CreateModel()
	if err != nil {
		return nil, err
	}
	thresholds := classifier.Thresholds{Low: f.cfg.ThresholdLow, High: f.cfg.ThresholdHigh}
	return classifier.New(extractor, m, thresholds)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.PhotoFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPPhotoFetcher(storage.WithTimeout(f.cfg.ImageFetchTimeout)), nil
	case AzureStorage:
		fetcher, err := storage.NewAzurePhotoFetcher(f.cfg.AzureAccountName, f.cfg.AzureAccountKey, storage.DefaultMaxPhotoSize)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	case LocalStorage:
		fetcher, err := storage.NewLocalPhotoFetcher(f.cfg.LocalRoot, storage.DefaultMaxPhotoSize)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateValidator creates the location validator matching a backend
func (f *storageFactory) CreateValidator(storageType StorageType) validation.LocationValidator {
	switch storageType {
	case AzureStorage:
		return validation.NewBlobURLValidator()
	case LocalStorage:
		return validation.NewPathValidator()
	default:
		return validation.NewURLValidator()
	}
}

// CreateResultRepository opens the results store. It returns nil when
// persistence is disabled.
func (f *storageFactory) CreateResultRepository() (repository.ResultRepository, error) {
	if f.cfg.ResultsDB == "" {
		return nil, nil
	}
	repo, err := repository.NewSQLiteResultRepository(f.cfg.ResultsDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open results store %s: %w", f.cfg.ResultsDB, err)
	}
	return repo, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ExtractorFactory  ExtractorFactory
	ClassifierFactory ClassifierFactory
	StorageFactory    StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		ExtractorFactory:  NewExtractorFactory(cfg, nil),
		ClassifierFactory: NewClassifierFactory(cfg),
		StorageFactory:    NewStorageFactory(cfg),
	}
}
