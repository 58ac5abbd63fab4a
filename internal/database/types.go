package database

import "time"

// Attendance event types recorded in the audit log.
const (
	EventCheckIn           = "CHECK_IN"
	EventCheckOut          = "CHECK_OUT"
	EventRecognitionFailed = "RECOGNITION_FAILED"
)

// FaceRecord is one enrolled face. Records are append-only: after insert
// only IsActive (and UpdatedAt) ever change, and rows are never hard-deleted
// so the audit trail stays complete.
type FaceRecord struct {
	FaceID    string // opaque identifier, assigned on insert
	Seq       int64  // insertion sequence, assigned on insert; tie-break for Nearest
	UserID    int64
	Embedding []float32

	QualityScore    float64
	SharpnessScore  float64
	BrightnessScore float64

	BBox [4]int // x1, y1, x2, y2

	IsLivenessVerified bool
	LivenessScore      float64

	EnrollmentDevice   string
	EnrollmentLocation string
	Notes              string

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttendanceRecord is one recognition attempt, successful or not.
type AttendanceRecord struct {
	LogID         string
	UserID        *int64  // nil when no match or no face detected
	MatchedFaceID *string // nil unless a face matched
	Confidence    float64
	EventType     string // CHECK_IN, CHECK_OUT or RECOGNITION_FAILED
	Location      string
	DeviceID      string
	Metadata      map[string]any // diagnostic payload, e.g. failure reason
	CreatedAt     time.Time
}

// Match is the best active face for a query embedding.
type Match struct {
	FaceID     string
	UserID     int64
	Similarity float64 // 1 - cosine distance
}
