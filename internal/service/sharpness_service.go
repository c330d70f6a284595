package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go-photo-sharpness/internal/afpoint"
	"go-photo-sharpness/internal/classifier"
	"go-photo-sharpness/internal/decode"
	apperrors "go-photo-sharpness/internal/errors"
	"go-photo-sharpness/internal/logger"
	"go-photo-sharpness/internal/model"
	"go-photo-sharpness/internal/observer"
	"go-photo-sharpness/internal/photo"
	"go-photo-sharpness/internal/repository"
	"go-photo-sharpness/internal/storage"
	"go-photo-sharpness/pkg/models"

	"github.com/sirupsen/logrus"
)

// SharpnessService defines the photo classification use cases
type SharpnessService interface {
	// Classify fetches one photograph and classifies it against the cursor
	// carried in the request
	Classify(ctx context.Context, req models.ClassifyRequest) (*models.ClassificationResponse, error)

	// ClassifyBatch classifies an ordered run of photographs
	ClassifyBatch(ctx context.Context, req models.BatchClassifyRequest) (*models.BatchClassificationResponse, error)

	// GetResult returns a persisted classification
	GetResult(ctx context.Context, id string) (*models.ClassificationResponse, error)

	// ModelInfo describes the loaded model and thresholds
	ModelInfo() models.ModelResponse

	// ValidateLocation validates a photo location
	ValidateLocation(location string) error
}

// Options tune the service
type Options struct {
	FetchTimeout     time.Duration
	InitialIndex     int
	MaxBatchSize     int
	FetchConcurrency int
}

// DefaultServiceOptions returns the options used when none are configured
func DefaultServiceOptions() Options {
	return Options{
		FetchTimeout:     15 * time.Second,
		InitialIndex:     afpoint.DefaultInitialIndex,
		MaxBatchSize:     64,
		FetchConcurrency: 4,
	}
}

type sharpnessService struct {
	photos     repository.PhotoRepository
	results    repository.ResultRepository
	classifier *classifier.Classifier
	events     observer.Subject
	opts       Options
}

// NewSharpnessService creates the classification service. results and
// events may be nil to disable persistence and event publication.
func NewSharpnessService(
	photos repository.PhotoRepository,
	results repository.ResultRepository,
	clf *classifier.Classifier,
	events observer.Subject,
	opts Options,
) SharpnessService {
	defaults := DefaultServiceOptions()
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaults.FetchTimeout
	}
	if opts.InitialIndex <= 0 {
		opts.InitialIndex = defaults.InitialIndex
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = defaults.MaxBatchSize
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = defaults.FetchConcurrency
	}
	return &sharpnessService{
		photos:     photos,
		results:    results,
		classifier: clf,
		events:     events,
		opts:       opts,
	}
}

// Classify performs a single classification. When feature extraction fails
// part way the partial response is returned together with the error.
func (s *sharpnessService) Classify(ctx context.Context, req models.ClassifyRequest) (*models.ClassificationResponse, error) {
	if err := s.ValidateLocation(req.URL); err != nil {
		return nil, err
	}

	cursor := afpoint.NewCursor(s.opts.InitialIndex)
	if req.LastGoodIndex != nil {
		cursor = afpoint.NewCursor(*req.LastGoodIndex)
	}
	if cursor.LastGood <= afpoint.NoReading {
		return nil, apperrors.NewValidationError("last good index must be a real af point", nil)
	}

	start := time.Now()
	s.notify(ctx, observer.ClassificationEvent{EventType: observer.ClassificationStarted, Location: req.URL})

	p, err := s.fetch(ctx, req.PhotoRequest)
	if err != nil {
		appErr := mapError(err, apperrors.NewNetworkError, "failed to fetch photo")
		s.notifyFailure(ctx, req.URL, start, appErr)
		return nil, appErr
	}

	result, err := s.classifier.Classify(p, cursor)
	resp := s.toResponse(req.URL, p.MakerNote.CameraModel, result, err == nil, start, time.Since(start))
	if err != nil {
		appErr := mapError(err, apperrors.NewProcessingError, "failed to classify photo")
		s.notifyFailure(ctx, req.URL, start, appErr)
		return resp, appErr
	}

	resp.ID = s.save(ctx, req.URL, p.MakerNote.CameraModel, result, start)
	s.notifyCompleted(ctx, req.URL, start, result)
	return resp, nil
}

// ClassifyBatch fetches the photographs concurrently, then classifies the
// fetched ones in request order. Photographs that fail validation or
// fetching are reported in place and do not take part in AF index
// resolution.
func (s *sharpnessService) ClassifyBatch(ctx context.Context, req models.BatchClassifyRequest) (*models.BatchClassificationResponse, error) {
	if len(req.Photos) == 0 {
		return nil, apperrors.NewValidationError("batch must contain at least one photo", nil)
	}
	if len(req.Photos) > s.opts.MaxBatchSize {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("batch of %d photos exceeds the limit of %d", len(req.Photos), s.opts.MaxBatchSize), nil)
	}

	start := time.Now()
	initial := s.opts.InitialIndex
	if req.InitialIndex != nil {
		initial = *req.InitialIndex
	}
	if initial <= afpoint.NoReading {
		return nil, apperrors.NewValidationError("initial index must be a real af point", nil)
	}

	resp := &models.BatchClassificationResponse{
		Items:      make([]models.BatchItemResponse, len(req.Photos)),
		NextCursor: initial,
	}
	for i, pr := range req.Photos {
		resp.Items[i].URL = pr.URL
	}

	fetched := s.fetchAll(ctx, req.Photos, resp.Items)

	var (
		photos  []*photo.Photo
		indices []int
	)
	for i, p := range fetched {
		if p != nil {
			photos = append(photos, p)
			indices = append(indices, i)
		}
	}

	for k, br := range s.classifier.ClassifyBatch(photos, afpoint.NewCursor(initial)) {
		i := indices[k]
		url := req.Photos[i].URL
		camera := photos[k].MakerNote.CameraModel

		item := s.toResponse(url, camera, br.Result, br.Err == nil, start, time.Since(start))
		resp.Items[i].Result = item
		resp.NextCursor = item.NextCursor

		if br.Err != nil {
			appErr := mapError(br.Err, apperrors.NewProcessingError, "failed to classify photo")
			resp.Items[i].Error = errorResponse(appErr)
			s.notifyFailure(ctx, url, start, appErr)
			continue
		}
		item.ID = s.save(ctx, url, camera, br.Result, start)
		s.notifyCompleted(ctx, url, start, br.Result)
	}

	for _, item := range resp.Items {
		if item.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	resp.ProcessingTimeSec = time.Since(start).Seconds()

	logger.WithFields(logrus.Fields{
		"photos":      len(req.Photos),
		"succeeded":   resp.Succeeded,
		"failed":      resp.Failed,
		"next_cursor": resp.NextCursor,
	}).Info("Batch classification completed")

	return resp, nil
}

// fetchAll fetches every photograph with bounded concurrency. Failures are
// recorded on the matching item and leave a nil photo.
func (s *sharpnessService) fetchAll(ctx context.Context, reqs []models.PhotoRequest, items []models.BatchItemResponse) []*photo.Photo {
	fetched := make([]*photo.Photo, len(reqs))
	sem := make(chan struct{}, s.opts.FetchConcurrency)

	var wg sync.WaitGroup
	for i, pr := range reqs {
		if err := s.ValidateLocation(pr.URL); err != nil {
			items[i].Error = errorResponse(mapError(err, apperrors.NewValidationError, "invalid photo location"))
			continue
		}

		wg.Add(1)
		go func(i int, pr models.PhotoRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			s.notify(ctx, observer.ClassificationEvent{EventType: observer.ClassificationStarted, Location: pr.URL})

			p, err := s.fetch(ctx, pr)
			if err != nil {
				appErr := mapError(err, apperrors.NewNetworkError, "failed to fetch photo")
				items[i].Error = errorResponse(appErr)
				s.notifyFailure(ctx, pr.URL, start, appErr)
				return
			}
			fetched[i] = p
		}(i, pr)
	}
	wg.Wait()

	return fetched
}

// GetResult returns a persisted classification
func (s *sharpnessService) GetResult(ctx context.Context, id string) (*models.ClassificationResponse, error) {
	if s.results == nil {
		return nil, apperrors.NewNotFoundError("result persistence is disabled", nil)
	}

	record, err := s.results.GetResult(ctx, id)
	if err != nil {
		return nil, mapError(err, apperrors.NewInternalError, "failed to load result")
	}

	resp := s.toResponse(record.Location, record.CameraModel, record.Result, true, record.Timestamp, 0)
	resp.ID = record.ID
	resp.ProcessingTimeSec = record.ProcessingTimeSec
	return resp, nil
}

// ModelInfo describes the loaded model
func (s *sharpnessService) ModelInfo() models.ModelResponse {
	m := s.classifier.Model()
	a := m.Artifact()
	t := s.classifier.Thresholds()
	return models.ModelResponse{
		FeatureNames: a.FeatureNames,
		Coefficients: a.Coefficients,
		Intercept:    a.Intercept,
		Inputs:       m.Inputs(),
		Thresholds:   models.ThresholdsResponse{Low: t.Low, High: t.High},
		Degraded:     m.Degraded(),
	}
}

// ValidateLocation validates a photo location, reporting failures as
// validation errors
func (s *sharpnessService) ValidateLocation(location string) error {
	if err := s.photos.ValidateLocation(location); err != nil {
		if appErr, ok := apperrors.As(err); ok {
			return appErr
		}
		return apperrors.NewValidationError("invalid photo location", err)
	}
	return nil
}

func (s *sharpnessService) fetch(ctx context.Context, pr models.PhotoRequest) (*photo.Photo, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	p, err := s.photos.FetchPhoto(fetchCtx, pr.URL, decode.Overrides{
		CameraModel:   pr.CameraModel,
		AFPointIndex:  pr.AFPointIndex,
		FocalLength:   pr.FocalLength,
		FocalDistance: pr.FocalDistance,
	})
	if err != nil {
		s.notify(ctx, observer.ClassificationEvent{
			EventType:      observer.PhotoFetchFailed,
			Location:       pr.URL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	s.notify(ctx, observer.ClassificationEvent{
		EventType:      observer.PhotoFetched,
		Location:       pr.URL,
		ProcessingTime: time.Since(start),
		Success:        true,
	})
	return p, nil
}

// save persists a result and returns its id. Persistence failures are
// logged and do not fail the classification.
func (s *sharpnessService) save(ctx context.Context, location, camera string, result classifier.Result, start time.Time) string {
	if s.results == nil {
		return ""
	}

	record := &repository.ResultRecord{
		Location:          location,
		CameraModel:       camera,
		Timestamp:         start.UTC(),
		ProcessingTimeSec: time.Since(start).Seconds(),
		Result:            result,
	}
	if err := s.results.SaveResult(ctx, record); err != nil {
		logger.WithError(err).WithField("photo", location).Warn("Failed to persist classification result")
		return ""
	}
	return record.ID
}

func (s *sharpnessService) toResponse(location, camera string, r classifier.Result, complete bool, ts time.Time, elapsed time.Duration) *models.ClassificationResponse {
	resp := &models.ClassificationResponse{
		URL:               location,
		Timestamp:         ts.UTC().Format(time.RFC3339),
		ProcessingTimeSec: elapsed.Seconds(),
		Features:          r.Features.Map(),
		CameraModel:       camera,
		Calibration:       r.Calibration,
		ResolvedIndex:     r.ResolvedIndex,
		NextCursor:        r.NextCursor().LastGood,
		Degraded:          r.Degraded,
	}
	if complete {
		resp.Score = r.Score
		resp.Verdict = r.Verdict.String()
		resp.Bucket = r.Verdict.Bucket()
	}
	return resp
}

func (s *sharpnessService) notify(ctx context.Context, event observer.ClassificationEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

func (s *sharpnessService) notifyCompleted(ctx context.Context, location string, start time.Time, r classifier.Result) {
	s.notify(ctx, observer.ClassificationEvent{
		EventType:      observer.ClassificationCompleted,
		Location:       location,
		ProcessingTime: time.Since(start),
		Success:        true,
		Verdict:        r.Verdict.String(),
		Score:          r.Score,
		Degraded:       r.Degraded,
		Metadata: map[string]interface{}{
			"resolved_index": r.ResolvedIndex,
			"calibration":    r.Calibration,
		},
	})
}

func (s *sharpnessService) notifyFailure(ctx context.Context, location string, start time.Time, appErr *apperrors.AppError) {
	s.notify(ctx, observer.ClassificationEvent{
		EventType:      observer.ClassificationFailed,
		Location:       location,
		ProcessingTime: time.Since(start),
		ErrorMessage:   appErr.Error(),
		Metadata:       map[string]interface{}{"error_type": appErr.Type},
	})
}

// mapError translates domain errors into the application error taxonomy.
// Errors matching no known sentinel become fallback errors.
func mapError(err error, fallback func(string, error) *apperrors.AppError, message string) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("photo fetch timed out", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewCanceledError("request cancelled", err)
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.NewNotFoundError("photo not found", err)
	case errors.Is(err, repository.ErrResultNotFound):
		return apperrors.NewNotFoundError("result not found", err)
	case errors.Is(err, storage.ErrTooLarge):
		return apperrors.NewValidationError("photo too large", err)
	case errors.Is(err, storage.ErrInvalidLocation), errors.Is(err, repository.ErrInvalidLocation):
		return apperrors.NewValidationError("invalid photo location", err)
	case errors.Is(err, afpoint.ErrUnknownCamera):
		return apperrors.NewValidationError("unknown camera model", err)
	case errors.Is(err, decode.ErrUnsupportedFormat):
		return apperrors.NewProcessingError("unsupported image format", err)
	case errors.Is(err, decode.ErrCorrupt):
		return apperrors.NewProcessingError("corrupt image", err)
	case errors.Is(err, afpoint.ErrIndexOutOfRange):
		return apperrors.NewProcessingError("af point index out of range", err)
	case errors.Is(err, afpoint.ErrTileOutOfBounds):
		return apperrors.NewProcessingError("af point tile outside the photo", err)
	case errors.Is(err, model.ErrFeatureCountMismatch):
		return apperrors.NewInternalError("model does not match the feature vector", err)
	default:
		return fallback(message, err)
	}
}

func errorResponse(appErr *apperrors.AppError) *models.ErrorResponse {
	return &models.ErrorResponse{
		Error:   http.StatusText(appErr.StatusCode),
		Type:    string(appErr.Type),
		Message: appErr.Error(),
	}
}
