package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hotelops/faceattend/internal/database"
	"github.com/hotelops/faceattend/internal/detector"
	"github.com/hotelops/faceattend/internal/imaging"
	"github.com/hotelops/faceattend/internal/liveness"
	"github.com/hotelops/faceattend/internal/metrics"
	"github.com/hotelops/faceattend/internal/quality"
)

// EnrollRequest is one enrollment attempt. ImageData holds decoded
// transport bytes (JPEG, PNG or BMP).
type EnrollRequest struct {
	UserID    int64
	ImageData []byte

	RequireLiveness bool

	Device   string
	Location string
	Notes    string
}

// Enroller runs the enrollment flow: detect, score quality, verify
// liveness, persist. A rejection at any stage leaves no trace in storage.
type Enroller struct {
	detector detector.Detector
	liveness liveness.Detector
	faces    database.FaceStore

	minQuality        float64
	livenessThreshold float64
	embeddingDim      int
	timeouts          Timeouts
}

// NewEnroller wires an enrollment pipeline from its dependencies. Zero
// timeout values fall back to package defaults.
func NewEnroller(
	det detector.Detector,
	live liveness.Detector,
	faces database.FaceStore,
	minQuality, livenessThreshold float64,
	embeddingDim int,
	timeouts Timeouts,
) *Enroller {
	return &Enroller{
		detector:          det,
		liveness:          live,
		faces:             faces,
		minQuality:        minQuality,
		livenessThreshold: livenessThreshold,
		embeddingDim:      embeddingDim,
		timeouts:          timeouts.orDefaults(),
	}
}

// Enroll processes one enrollment attempt. A non-nil error means an
// infrastructure failure; business rejections come back in the result.
func (e *Enroller) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	img, err := imaging.Decode(req.ImageData)
	if err != nil {
		metrics.Enrollments.WithLabelValues(string(ReasonInvalidImage)).Inc()
		return &EnrollResult{Rejection: &Rejection{
			Reason:  ReasonInvalidImage,
			Message: "image could not be decoded",
		}}, nil
	}

	detections, err := e.detect(ctx, req.ImageData)
	if err != nil {
		metrics.Enrollments.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("face detection: %w", err)
	}

	switch {
	case len(detections) == 0:
		metrics.Enrollments.WithLabelValues(string(ReasonNoFaceDetected)).Inc()
		return &EnrollResult{Rejection: &Rejection{
			Reason:  ReasonNoFaceDetected,
			Message: "no face detected in image",
		}}, nil
	case len(detections) > 1:
		metrics.Enrollments.WithLabelValues(string(ReasonMultipleFaces)).Inc()
		return &EnrollResult{Rejection: &Rejection{
			Reason:    ReasonMultipleFaces,
			Message:   fmt.Sprintf("expected exactly one face, found %d", len(detections)),
			FaceCount: len(detections),
		}}, nil
	}
	face := detections[0]

	if len(face.Embedding) != e.embeddingDim {
		metrics.Enrollments.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("embedding dimension %d, expected %d", len(face.Embedding), e.embeddingDim)
	}

	crop, err := imaging.CropBBox(img, face.BBox)
	if err != nil {
		metrics.Enrollments.WithLabelValues(string(ReasonInvalidImage)).Inc()
		return &EnrollResult{Rejection: &Rejection{
			Reason:  ReasonInvalidImage,
			Message: fmt.Sprintf("unusable face region: %v", err),
		}}, nil
	}
	gray := imaging.Grayscale(crop)

	start := time.Now()
	scores := quality.Score(gray, face.Score)
	metrics.StageDuration.WithLabelValues("quality").Observe(time.Since(start).Seconds())

	if scores.Overall < e.minQuality {
		metrics.Enrollments.WithLabelValues(string(ReasonQualityTooLow)).Inc()
		return &EnrollResult{Rejection: &Rejection{
			Reason:  ReasonQualityTooLow,
			Message: fmt.Sprintf("quality score %.2f below minimum %.2f", scores.Overall, e.minQuality),
			Quality: &scores,
		}}, nil
	}

	var decision liveness.Decision
	if req.RequireLiveness {
		start = time.Now()
		livenessCtx, cancel := stageContext(ctx, e.timeouts.Liveness)
		decision, err = e.liveness.Detect(livenessCtx, crop)
		cancel()
		metrics.StageDuration.WithLabelValues("liveness").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.Enrollments.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("liveness detection: %w", err)
		}

		if !decision.IsLive || decision.Score < e.livenessThreshold {
			slog.Warn("liveness rejection",
				"user_id", req.UserID,
				"score", decision.Score,
				"device", req.Device,
			)
			metrics.Enrollments.WithLabelValues(string(ReasonLivenessFailed)).Inc()
			return &EnrollResult{Rejection: &Rejection{
				Reason:  ReasonLivenessFailed,
				Message: fmt.Sprintf("liveness score %.2f below threshold %.2f", decision.Score, e.livenessThreshold),
			}}, nil
		}
	}

	rec := &database.FaceRecord{
		UserID:             req.UserID,
		Embedding:          face.Embedding,
		QualityScore:       scores.Overall,
		SharpnessScore:     scores.Sharpness,
		BrightnessScore:    scores.Brightness,
		BBox:               face.BBox,
		IsLivenessVerified: req.RequireLiveness,
		LivenessScore:      decision.Score,
		EnrollmentDevice:   req.Device,
		EnrollmentLocation: req.Location,
		Notes:              req.Notes,
	}

	start = time.Now()
	storeCtx, cancel := stageContext(ctx, e.timeouts.Store)
	faceID, err := e.faces.Insert(storeCtx, rec)
	cancel()
	metrics.StageDuration.WithLabelValues("store").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Enrollments.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("persist face: %w", err)
	}

	slog.Info("face enrolled",
		"face_id", faceID,
		"user_id", req.UserID,
		"quality", scores.Overall,
	)
	metrics.Enrollments.WithLabelValues("enrolled").Inc()

	return &EnrollResult{
		FaceID:             faceID,
		UserID:             req.UserID,
		Quality:            scores,
		IsLivenessVerified: req.RequireLiveness,
		LivenessScore:      decision.Score,
	}, nil
}

func (e *Enroller) detect(ctx context.Context, imageData []byte) ([]detector.Detection, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
	}()
	return e.detector.Detect(ctx, imageData)
}
