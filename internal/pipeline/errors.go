// Package pipeline orchestrates enrollment and recognition. Business
// rejections are returned as values so callers can tell a rejected image
// apart from a broken dependency; only infrastructure failures travel as
// Go errors.
package pipeline

import "github.com/hotelops/faceattend/internal/quality"

// RejectReason identifies why a request was rejected. Reasons are part of
// the API surface and the audit log metadata.
type RejectReason string

const (
	ReasonInvalidImage   RejectReason = "invalid_image"
	ReasonNoFaceDetected RejectReason = "no_face_detected"
	ReasonMultipleFaces  RejectReason = "multiple_faces"
	ReasonQualityTooLow  RejectReason = "quality_too_low"
	ReasonLivenessFailed RejectReason = "liveness_failed"
	ReasonNoMatch        RejectReason = "no_match_above_threshold"
)

// Rejection describes a business rejection. It is a value, not an error:
// the request was handled correctly, the image just did not pass.
type Rejection struct {
	Reason  RejectReason
	Message string

	// FaceCount is set for multiple-face rejections.
	FaceCount int

	// Quality carries component scores for quality rejections so the
	// caller can give actionable feedback.
	Quality *quality.Scores
}

// EnrollResult is the outcome of one enrollment attempt. Exactly one of
// the success fields or Rejection is populated.
type EnrollResult struct {
	Rejection *Rejection

	FaceID             string
	UserID             int64
	Quality            quality.Scores
	IsLivenessVerified bool
	LivenessScore      float64
}

// RecognizeResult is the outcome of one recognition attempt. LogID is set
// on every outcome, success or rejection, unless the audit write itself
// failed. Confidence holds the best similarity found even on rejection.
type RecognizeResult struct {
	Rejection *Rejection

	UserID     int64
	FaceID     string
	EventType  string
	Confidence float64
	LogID      string
}

// Recognized reports whether the attempt matched an enrolled face.
func (r *RecognizeResult) Recognized() bool {
	return r.Rejection == nil
}
