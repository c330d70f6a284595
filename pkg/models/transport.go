package models

// PhotoRequest identifies one photograph and the camera fields that
// override what is decoded from its EXIF.
type PhotoRequest struct {
	URL           string   `json:"url" binding:"required"`
	CameraModel   *string  `json:"camera_model,omitempty"`
	AFPointIndex  *int     `json:"af_point_index,omitempty" binding:"omitempty,min=0"`
	FocalLength   *float64 `json:"focal_length,omitempty" binding:"omitempty,gte=0"`
	FocalDistance *float64 `json:"focal_distance,omitempty" binding:"omitempty,gte=0"`
}

// ClassifyRequest is the body of a single classification. LastGoodIndex is
// the cursor returned as next_cursor by the previous call in a sequence.
type ClassifyRequest struct {
	PhotoRequest
	LastGoodIndex *int `json:"last_good_index,omitempty" binding:"omitempty,min=1"`
}

// BatchClassifyRequest classifies photographs in the given order, carrying
// the AF cursor from one to the next.
type BatchClassifyRequest struct {
	Photos       []PhotoRequest `json:"photos" binding:"required,min=1,dive"`
	InitialIndex *int           `json:"initial_index,omitempty" binding:"omitempty,min=1"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Partial carries the features computed before a processing failure
	Partial *ClassificationResponse `json:"partial,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status   string                `json:"status"`
	Version  string                `json:"version"`
	Time     string                `json:"time"`
	Degraded bool                  `json:"degraded"`
	Metrics  ClassificationMetrics `json:"metrics"`
}
