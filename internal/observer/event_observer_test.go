package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	name  string
	count atomic.Int64
}

func (c *countingObserver) OnEvent(context.Context, ClassificationEvent) { c.count.Add(1) }
func (c *countingObserver) GetObserverName() string                     { return c.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, ClassificationEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                     { return "panicking" }

func TestMetricsObserver(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	events := []ClassificationEvent{
		{EventType: ClassificationStarted},
		{EventType: ClassificationCompleted, Verdict: "Sharp", ProcessingTime: 100 * time.Millisecond},
		{EventType: ClassificationStarted},
		{EventType: ClassificationCompleted, Verdict: "Unsharp", Degraded: true, ProcessingTime: 300 * time.Millisecond},
		{EventType: ClassificationStarted},
		{EventType: ClassificationCompleted, Verdict: "Sharp", ProcessingTime: 200 * time.Millisecond},
		{EventType: ClassificationStarted},
		{EventType: ClassificationFailed, ErrorMessage: "tile out of bounds"},
		{EventType: PhotoFetchFailed},
		{EventType: PhotoFetched},
	}
	for _, e := range events {
		m.OnEvent(ctx, e)
	}

	got := m.GetMetrics()
	assert.Equal(t, int64(4), got.Total)
	assert.Equal(t, int64(3), got.Succeeded)
	assert.Equal(t, int64(1), got.Failed)
	assert.Equal(t, int64(1), got.FetchFailures)
	assert.Equal(t, int64(1), got.Degraded)
	assert.Equal(t, map[string]int64{"Sharp": 2, "Unsharp": 1}, got.Verdicts)
	assert.Equal(t, 600*time.Millisecond, got.TotalProcessingTime)
	assert.Equal(t, 200*time.Millisecond, got.AvgProcessingTime)

	// The returned map is a snapshot
	got.Verdicts["Sharp"] = 99
	assert.Equal(t, int64(2), m.GetMetrics().Verdicts["Sharp"])
}

func TestMetricsObserver_Empty(t *testing.T) {
	got := NewMetricsObserver().GetMetrics()
	assert.Zero(t, got.AvgProcessingTime)
	assert.Empty(t, got.Verdicts)
}

func TestEventPublisher(t *testing.T) {
	p := NewEventPublisher()
	a := &countingObserver{name: "a"}
	b := &countingObserver{name: "b"}
	p.Subscribe(a)
	p.Subscribe(b)
	p.Subscribe(panickingObserver{})

	ctx := context.Background()
	p.NotifyObservers(ctx, ClassificationEvent{EventType: ClassificationStarted})
	p.NotifyObservers(ctx, ClassificationEvent{EventType: ClassificationCompleted})
	p.Flush()

	assert.Equal(t, int64(2), a.count.Load())
	assert.Equal(t, int64(2), b.count.Load())

	p.Unsubscribe(&countingObserver{name: "a"})
	p.NotifyObservers(ctx, ClassificationEvent{EventType: ClassificationFailed})
	p.Flush()

	assert.Equal(t, int64(2), a.count.Load())
	assert.Equal(t, int64(3), b.count.Load())
}

func TestEventPublisher_CancelledContext(t *testing.T) {
	p := NewEventPublisher()
	m := NewMetricsObserver()
	p.Subscribe(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.NotifyObservers(ctx, ClassificationEvent{EventType: ClassificationStarted})
	p.Flush()

	assert.Equal(t, int64(1), m.GetMetrics().Total)
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	o := NewLoggingObserver(log)
	o.OnEvent(context.Background(), ClassificationEvent{
		EventType: ClassificationCompleted,
		Location:  "DSC_0001.jpg",
		Success:   true,
		Verdict:   "Questionable",
		Score:     2.75,
		Metadata:  map[string]interface{}{"resolved_index": 17},
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Classification completed", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "DSC_0001.jpg", entry["photo"])
	assert.Equal(t, "Questionable", entry["verdict"])
	assert.Equal(t, 2.75, entry["score"])
	assert.Equal(t, 17.0, entry["resolved_index"])
}
