package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hotelops/faceattend/internal/database"
	"github.com/hotelops/faceattend/internal/detector"
	"github.com/hotelops/faceattend/internal/events"
	"github.com/hotelops/faceattend/internal/imaging"
	"github.com/hotelops/faceattend/internal/metrics"
)

// RecognizeRequest is one recognition attempt.
type RecognizeRequest struct {
	ImageData []byte
	EventType string // CHECK_IN or CHECK_OUT, defaults to CHECK_IN
	Location  string
	DeviceID  string
}

// Recognizer runs the recognition flow: detect, match, log, notify.
// Every attempt writes exactly one attendance log row whatever the
// outcome; the log is the source of truth and the published event is a
// best-effort notification on top of it.
type Recognizer struct {
	detector  detector.Detector
	faces     database.FaceStore
	log       database.AttendanceStore
	publisher events.Publisher

	threshold float64
	timeouts  Timeouts
}

// NewRecognizer wires a recognition pipeline from its dependencies. Zero
// timeout values fall back to package defaults.
func NewRecognizer(
	det detector.Detector,
	faces database.FaceStore,
	log database.AttendanceStore,
	publisher events.Publisher,
	threshold float64,
	timeouts Timeouts,
) *Recognizer {
	return &Recognizer{
		detector:  det,
		faces:     faces,
		log:       log,
		publisher: publisher,
		threshold: threshold,
		timeouts:  timeouts.orDefaults(),
	}
}

// Recognize processes one recognition attempt. A non-nil error means an
// infrastructure failure; an unrecognized face is a rejection result, not
// an error.
func (r *Recognizer) Recognize(ctx context.Context, req RecognizeRequest) (*RecognizeResult, error) {
	eventType := req.EventType
	if eventType == "" {
		eventType = database.EventCheckIn
	}

	if _, err := imaging.Decode(req.ImageData); err != nil {
		return r.reject(ctx, req, &Rejection{
			Reason:  ReasonInvalidImage,
			Message: "image could not be decoded",
		}, 0, nil)
	}

	start := time.Now()
	detections, err := r.detector.Detect(ctx, req.ImageData)
	metrics.StageDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
	if err != nil {
		r.logFailure(ctx, req, 0, map[string]any{"reason": "infrastructure_error", "stage": "detect"})
		metrics.Recognitions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("face detection: %w", err)
	}

	switch {
	case len(detections) == 0:
		return r.reject(ctx, req, &Rejection{
			Reason:  ReasonNoFaceDetected,
			Message: "no face detected in image",
		}, 0, nil)
	case len(detections) > 1:
		return r.reject(ctx, req, &Rejection{
			Reason:    ReasonMultipleFaces,
			Message:   fmt.Sprintf("expected exactly one face, found %d", len(detections)),
			FaceCount: len(detections),
		}, 0, map[string]any{"count": len(detections)})
	}

	start = time.Now()
	matchCtx, cancel := stageContext(ctx, r.timeouts.Store)
	match, err := r.faces.Nearest(matchCtx, detections[0].Embedding)
	cancel()
	metrics.StageDuration.WithLabelValues("match").Observe(time.Since(start).Seconds())
	if err != nil {
		r.logFailure(ctx, req, 0, map[string]any{"reason": "infrastructure_error", "stage": "match"})
		metrics.Recognitions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("nearest face lookup: %w", err)
	}

	// Threshold is inclusive: a similarity of exactly the threshold matches.
	if match == nil || match.Similarity < r.threshold {
		confidence := 0.0
		if match != nil {
			confidence = match.Similarity
		}
		return r.reject(ctx, req, &Rejection{
			Reason:  ReasonNoMatch,
			Message: fmt.Sprintf("best similarity %.2f below threshold %.2f", confidence, r.threshold),
		}, confidence, nil)
	}

	rec := &database.AttendanceRecord{
		UserID:        &match.UserID,
		MatchedFaceID: &match.FaceID,
		Confidence:    match.Similarity,
		EventType:     eventType,
		Location:      req.Location,
		DeviceID:      req.DeviceID,
	}
	logCtx, cancel := stageContext(ctx, r.timeouts.Store)
	logID, err := r.log.Append(logCtx, rec)
	cancel()
	if err != nil {
		metrics.Recognitions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("write attendance log: %w", err)
	}

	r.publish(ctx, events.AttendanceEvent{
		UserID:     match.UserID,
		EventType:  eventType,
		Confidence: match.Similarity,
		Location:   req.Location,
		LogID:      logID,
		Timestamp:  rec.CreatedAt,
	})

	slog.Info("face recognized",
		"user_id", match.UserID,
		"face_id", match.FaceID,
		"confidence", match.Similarity,
		"event_type", eventType,
	)
	metrics.Recognitions.WithLabelValues("recognized").Inc()

	return &RecognizeResult{
		UserID:     match.UserID,
		FaceID:     match.FaceID,
		EventType:  eventType,
		Confidence: match.Similarity,
		LogID:      logID,
	}, nil
}

// reject records a failed attempt and returns the rejection result. The
// audit write is best-effort: its failure is logged, never escalated.
func (r *Recognizer) reject(
	ctx context.Context,
	req RecognizeRequest,
	rej *Rejection,
	confidence float64,
	extra map[string]any,
) (*RecognizeResult, error) {
	metadata := map[string]any{"reason": string(rej.Reason)}
	for k, v := range extra {
		metadata[k] = v
	}

	logID := r.logFailure(ctx, req, confidence, metadata)
	metrics.Recognitions.WithLabelValues(string(rej.Reason)).Inc()

	return &RecognizeResult{
		Rejection:  rej,
		Confidence: confidence,
		LogID:      logID,
	}, nil
}

// logFailure writes a RECOGNITION_FAILED row, returning its ID or empty
// when the write itself failed.
func (r *Recognizer) logFailure(
	ctx context.Context,
	req RecognizeRequest,
	confidence float64,
	metadata map[string]any,
) string {
	rec := &database.AttendanceRecord{
		Confidence: confidence,
		EventType:  database.EventRecognitionFailed,
		Location:   req.Location,
		DeviceID:   req.DeviceID,
		Metadata:   metadata,
	}
	logCtx, cancel := stageContext(ctx, r.timeouts.Store)
	defer cancel()
	logID, err := r.log.Append(logCtx, rec)
	if err != nil {
		slog.Error("attendance log write failed", "error", err, "metadata", metadata)
		return ""
	}
	return logID
}

// publish delivers the attendance event. The log row is already committed,
// so a broker failure only gets logged and counted.
func (r *Recognizer) publish(ctx context.Context, event events.AttendanceEvent) {
	start := time.Now()
	publishCtx, cancel := stageContext(ctx, r.timeouts.Publish)
	err := r.publisher.Publish(publishCtx, event)
	cancel()
	metrics.StageDuration.WithLabelValues("publish").Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("attendance event publish failed",
			"error", err,
			"user_id", event.UserID,
			"log_id", event.LogID,
		)
		metrics.PublishFailures.Inc()
	}
}
