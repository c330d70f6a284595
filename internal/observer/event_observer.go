package observer

import (
	"context"
	"sync"
	"time"

	"go-photo-sharpness/pkg/models"

	"github.com/sirupsen/logrus"
)

// ClassificationEvent represents a classification event
type ClassificationEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Location       string                 `json:"location"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	Verdict        string                 `json:"verdict,omitempty"`
	Score          float64                `json:"score,omitempty"`
	Degraded       bool                   `json:"degraded,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of classification event
type EventType string

const (
	// ClassificationStarted when classification begins
	ClassificationStarted EventType = "classification_started"
	// ClassificationCompleted when a verdict was produced
	ClassificationCompleted EventType = "classification_completed"
	// ClassificationFailed when feature extraction or scoring fails
	ClassificationFailed EventType = "classification_failed"
	// PhotoFetched when a photo is fetched and decoded
	PhotoFetched EventType = "photo_fetched"
	// PhotoFetchFailed when fetching or decoding a photo fails
	PhotoFetchFailed EventType = "photo_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event ClassificationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event ClassificationEvent)
}

// LoggingObserver logs classification events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles classification events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event ClassificationEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"photo":           event.Location,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.Verdict != "" {
		fields["verdict"] = event.Verdict
		fields["score"] = event.Score
		fields["degraded"] = event.Degraded
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ClassificationStarted:
		entry.Debug("Classification started")
	case ClassificationCompleted:
		entry.Info("Classification completed")
	case ClassificationFailed:
		entry.Error("Classification failed")
	case PhotoFetched:
		entry.Debug("Photo fetched successfully")
	case PhotoFetchFailed:
		entry.Error("Photo fetch failed")
	default:
		entry.Info("Classification event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects metrics from classification events
type MetricsObserver struct {
	mu                  sync.RWMutex
	total               int64
	succeeded           int64
	failed              int64
	fetchFailures       int64
	degraded            int64
	verdicts            map[string]int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{verdicts: make(map[string]int64)}
}

// OnEvent handles classification events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event ClassificationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case ClassificationStarted:
		o.total++
	case ClassificationCompleted:
		o.succeeded++
		o.totalProcessingTime += event.ProcessingTime
		if event.Verdict != "" {
			o.verdicts[event.Verdict]++
		}
		if event.Degraded {
			o.degraded++
		}
	case ClassificationFailed:
		o.failed++
	case PhotoFetchFailed:
		o.fetchFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() models.ClassificationMetrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.succeeded > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.succeeded)
	}

	verdicts := make(map[string]int64, len(o.verdicts))
	for k, v := range o.verdicts {
		verdicts[k] = v
	}

	return models.ClassificationMetrics{
		Total:               o.total,
		Succeeded:           o.succeeded,
		Failed:              o.failed,
		FetchFailures:       o.fetchFailures,
		Degraded:            o.degraded,
		Verdicts:            verdicts,
		TotalProcessingTime: o.totalProcessingTime,
		AvgProcessingTime:   avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Observers run
// concurrently and must not block; use Flush to wait for delivery.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event ClassificationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(context.WithoutCancel(ctx), event)
		}(observer)
	}
}

// Flush waits until every notification sent so far has been delivered
func (p *EventPublisher) Flush() {
	p.wg.Wait()
}
