package models

import "time"

// ClassificationResponse is the outcome of classifying one photograph
type ClassificationResponse struct {
	ID                string             `json:"id,omitempty"`
	URL               string             `json:"url"`
	Timestamp         string             `json:"timestamp"`
	ProcessingTimeSec float64            `json:"processing_time_sec"`
	Verdict           string             `json:"verdict,omitempty"`
	Bucket            string             `json:"bucket,omitempty"`
	Score             float64            `json:"score"`
	Features          map[string]float64 `json:"features"`
	CameraModel       string             `json:"camera_model,omitempty"`
	Calibration       string             `json:"calibration,omitempty"`
	ResolvedIndex     int                `json:"resolved_index"`
	NextCursor        int                `json:"next_cursor"`
	Degraded          bool               `json:"degraded"`
}

// BatchItemResponse is one entry of a batch, in request order. Exactly one
// of Result and Error is set unless feature extraction failed part way, in
// which case Result holds the partial features.
type BatchItemResponse struct {
	URL    string                  `json:"url"`
	Result *ClassificationResponse `json:"result,omitempty"`
	Error  *ErrorResponse          `json:"error,omitempty"`
}

// BatchClassificationResponse is the response of a batch classification
type BatchClassificationResponse struct {
	Items             []BatchItemResponse `json:"items"`
	Succeeded         int                 `json:"succeeded"`
	Failed            int                 `json:"failed"`
	NextCursor        int                 `json:"next_cursor"`
	ProcessingTimeSec float64             `json:"processing_time_sec"`
}

// ThresholdsResponse reports the verdict cut points
type ThresholdsResponse struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ModelResponse describes the loaded polynomial model
type ModelResponse struct {
	FeatureNames []string           `json:"feature_names"`
	Coefficients []float64          `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
	Inputs       []string           `json:"inputs"`
	Thresholds   ThresholdsResponse `json:"thresholds"`
	Degraded     bool               `json:"degraded"`
}

// ClassificationMetrics are running counters over classification events
type ClassificationMetrics struct {
	Total               int64            `json:"total"`
	Succeeded           int64            `json:"succeeded"`
	Failed              int64            `json:"failed"`
	FetchFailures       int64            `json:"fetch_failures"`
	Degraded            int64            `json:"degraded"`
	Verdicts            map[string]int64 `json:"verdicts"`
	TotalProcessingTime time.Duration    `json:"total_processing_time"`
	AvgProcessingTime   time.Duration    `json:"avg_processing_time"`
}
