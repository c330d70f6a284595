package container

import (
	"errors"
	"fmt"
	"net/http"

	"go-photo-sharpness/internal/analyzer"
	"go-photo-sharpness/internal/classifier"
	"go-photo-sharpness/internal/config"
	"go-photo-sharpness/internal/factory"
	"go-photo-sharpness/internal/logger"
	"go-photo-sharpness/internal/observer"
	"go-photo-sharpness/internal/repository"
	"go-photo-sharpness/internal/service"
	"go-photo-sharpness/internal/storage"
	"go-photo-sharpness/internal/transport"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	photoFetcher     storage.PhotoFetcher
	extractor        analyzer.FeatureExtractor
	classifier       *classifier.Classifier
	photoRepository  repository.PhotoRepository
	resultRepository repository.ResultRepository
	events           *observer.EventPublisher
	metrics          *observer.MetricsObserver
	sharpnessService service.SharpnessService
	handler          http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("container requires a configuration")
	}
	components := factory.NewComponentFactory(cfg)
	backend := factory.StorageType(cfg.StorageBackend)

	// Build dependency graph
	photoFetcher, err := components.StorageFactory.CreateStorage(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", backend, err)
	}

	extractor, err := components.ExtractorFactory.CreateExtractor()
	if err != nil {
		return nil, fmt.Errorf("failed to create feature extractor: %w", err)
	}

	clf, err := components.ClassifierFactory.CreateClassifier(extractor)
	if err != nil {
		extractor.Close()
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	resultRepository, err := components.StorageFactory.CreateResultRepository()
	if err != nil {
		extractor.Close()
		return nil, err
	}

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	photoRepository := repository.NewStoragePhotoRepository(photoFetcher, components.StorageFactory.CreateValidator(backend))
	sharpnessService := service.NewSharpnessService(photoRepository, resultRepository, clf, events, service.Options{
		FetchTimeout: cfg.ImageFetchTimeout,
		InitialIndex: cfg.InitialAFIndex,
		MaxBatchSize: cfg.MaxBatchSize,
	})
	handler := transport.NewHandler(sharpnessService, metrics, cfg)

	logger.WithFields(logrus.Fields{
		"storage":       backend,
		"degraded":      clf.Model().Degraded(),
		"gradient_mode": cfg.GradientMode,
		"results_db":    cfg.ResultsDB != "",
	}).Info("Container initialized")

	return &Container{
		config:           cfg,
		photoFetcher:     photoFetcher,
		extractor:        extractor,
		classifier:       clf,
		photoRepository:  photoRepository,
		resultRepository: resultRepository,
		events:           events,
		metrics:          metrics,
		sharpnessService: sharpnessService,
		handler:          handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the classification service
func (c *Container) Service() service.SharpnessService {
	return c.sharpnessService
}

// Close waits for pending events and releases the worker pool and the
// results store
func (c *Container) Close() error {
	c.events.Flush()

	var errs []error
	if err := c.extractor.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.resultRepository != nil {
		if err := c.resultRepository.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
